// Package git reports how a upm database directory interacts with git.
//
// Checks performed:
//   - Whether the directory is inside a git repository
//   - Whether the encrypted database is tracked (allowed)
//   - Whether backups and the sync journal are in .gitignore (should be)
//
// These checks help users who keep their configuration directory under
// version control avoid committing churn such as timestamped backups.
package git

// Package remote is the client for a UPM sync repository.
//
// A repository is a plain HTTP directory holding database files by name:
//   - GET <base>/<name> downloads a database (404 when absent)
//   - POST <base>/deletefile.php with form field fileToDelete removes one
//   - POST <base>/upload.php with multipart field userfile stores one
//
// Write commands answer with a short body that must be exactly "OK".
// Every request carries HTTP Basic Auth and a 10 second timeout.
package remote

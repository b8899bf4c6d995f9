// Package syncer reconciles a local database with its remote repository.
//
// A sync downloads the remote copy, decrypts it (with the local master
// password unless another one is given) and compares revisions:
//   - local newer: upload a remote backup, delete the remote, upload local
//   - remote newer: back up the local file and replace it with the download
//   - equal: nothing to transfer
//
// There is no merging. The whole database with the higher revision wins.
package syncer

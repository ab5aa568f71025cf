// Package directory is the user directory the registration flow checks for
// duplicates and creates accounts in.
//
// The PostgreSQL implementation keeps credentials in "users" and the profile
// document in "profiles". Account creation writes both rows in a single
// transaction; the profile image URL is attached later because the upload
// happens only after the account exists.
package directory

// Package models defines the client-side data carried through a
// registration: the collected form, the created account and the receipt
// kept in the local store.
package models

// Package storage uploads profile images to an S3-compatible bucket.
//
// An upload asks for a presigned PUT URL, sends the bytes with a plain HTTP
// PUT and returns the hosted URL of the object: PublicBaseURL/<key> when a
// public base is configured, a presigned GET URL otherwise.
package storage

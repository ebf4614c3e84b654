// Package kvstore defines the byte store contract the persistence manager
// writes through, plus local implementations (memory, filesystem, bbolt).
//
// Remote backends live in subpackages (s3, minio, dynamodb) so their SDK
// dependencies stay out of the import graph of users who do not need them.
package kvstore

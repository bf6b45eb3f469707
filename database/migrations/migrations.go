// Package migrations holds the SQL schema. Importing it registers every
// migration with pkg/migration.
package migrations

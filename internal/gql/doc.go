// Package gql defines the query/mutation documents exchanged with the
// Scriptoria API and the error taxonomy the exchange pipeline reports.
package gql

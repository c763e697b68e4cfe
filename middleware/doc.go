// Package middleware provides net/http glue for protecting routes with an
// authkit engine. On success the validation result is attached to the
// request context; every failure is answered with an identical 401 so the
// response never reveals why a token was rejected. [GuardWithDiagnostics]
// reports the rejection reason server-side without changing the response.
package middleware

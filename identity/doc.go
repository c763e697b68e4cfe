// Package identity defines the engine's view of an authenticated principal
// and the version counter that backs instantaneous all-sessions
// invalidation. The member database itself belongs to another part of the
// service; [Store] is the narrow surface the token subsystem reads through.
package identity

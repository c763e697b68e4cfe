package refresh

import (
	"errors"
	"strconv"
)

// Record is the durable bookkeeping row for one issued refresh credential.
// The credential itself is never stored; records are keyed by the SHA-256
// hash of the opaque string handed to the client.
type Record struct {
	// ID is a server-assigned identifier used in audit trails and device
	// listings. It carries no secret material.
	ID         string
	IdentityID string
	// Subject is the identity's external id, denormalized so rotation can
	// issue a new access token without an extra identity lookup.
	Subject string
	// Version is the identity version at issuance. Rotation rejects the
	// record once the identity's current version has moved past it.
	Version   int64
	UserAgent string
	ClientIP  string
	IssuedAt  int64
	ExpiresAt int64
	Revoked   bool
	Rotated   bool
}

// Live reports whether the record can still be exchanged: not revoked, not
// rotated, not expired. Expiry is closed on the right; a record whose
// ExpiresAt equals now is dead.
func (r *Record) Live(now int64) bool {
	return r != nil && !r.Revoked && !r.Rotated && now < r.ExpiresAt
}

func (r *Record) fields() []interface{} {
	return []interface{}{
		"id", r.ID,
		"identity", r.IdentityID,
		"subject", r.Subject,
		"ver", strconv.FormatInt(r.Version, 10),
		"ua", r.UserAgent,
		"ip", r.ClientIP,
		"iat", strconv.FormatInt(r.IssuedAt, 10),
		"exp", strconv.FormatInt(r.ExpiresAt, 10),
		"revoked", boolField(r.Revoked),
		"rotated", boolField(r.Rotated),
	}
}

func recordFromMap(fields map[string]string) (*Record, error) {
	if len(fields) == 0 {
		return nil, errors.New("empty record")
	}

	rec := &Record{
		ID:         fields["id"],
		IdentityID: fields["identity"],
		Subject:    fields["subject"],
		UserAgent:  fields["ua"],
		ClientIP:   fields["ip"],
		Revoked:    fields["revoked"] == "1",
		Rotated:    fields["rotated"] == "1",
	}
	if rec.ID == "" || rec.IdentityID == "" || rec.Subject == "" {
		return nil, errors.New("refresh record missing identity fields")
	}

	var err error
	if rec.Version, err = strconv.ParseInt(fields["ver"], 10, 64); err != nil {
		return nil, errors.New("refresh record has invalid version")
	}
	if rec.IssuedAt, err = strconv.ParseInt(fields["iat"], 10, 64); err != nil {
		return nil, errors.New("refresh record has invalid issue time")
	}
	if rec.ExpiresAt, err = strconv.ParseInt(fields["exp"], 10, 64); err != nil {
		return nil, errors.New("refresh record has invalid expiry")
	}

	return rec, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

package dynamo

// DynamoDB attribute names used in key, update and condition expressions.
const (
	fieldIdentity              = "identity"
	fieldCredentialDigest      = "credential_digest"
	fieldVerified              = "verified"
	fieldVerificationToken     = "verification_token"
	fieldVerificationExpiresAt = "verification_expires_at"
	fieldResetToken            = "reset_token"
	fieldResetExpiresAt        = "reset_expires_at"
	fieldLastAuthenticatedAt   = "last_authenticated_at"
	fieldUpdatedAt             = "updated_at"
)

// GSI names; each index is sparse because token attributes exist only while pending.
const (
	indexVerificationToken = "verification_token-index"
	indexResetToken        = "reset_token-index"
)

package types

const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString holds a credential (meteoblue API key, Pushover token,
// database URL) in a form that cannot leak through fmt or JSON output:
// both String and MarshalJSON yield a fixed placeholder. Callers that
// actually need the plaintext, such as the URL builder or the pgx pool
// setup, go through Unmask.
type SecretString string

// String implements fmt.Stringer with the redacted placeholder.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON encodes the redacted placeholder, never the value.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the plaintext credential.
func (s SecretString) Unmask() string {
	return string(s)
}

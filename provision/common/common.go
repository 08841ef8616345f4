package common

// Credentials holds the secrets a run may need: sudo escalation on the
// local host and authentication towards the peer host.
type Credentials struct {
	User          string
	Password      string
	KeyPassphrase string
	SudoPassword  string
}

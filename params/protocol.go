package params

const (
	// AuthMagic is the domain marker byte prefixed to every canonical
	// authorization message. It keeps authorization digests disjoint from
	// transaction and typed-data hashes, which all start with a different
	// leading byte.
	AuthMagic = byte(0x04)

	// AuthMessageLength is the exact size of the canonical authorization
	// message: marker byte, 32-byte chain id, 32-byte padded instance
	// address and the 32-byte commit.
	AuthMessageLength = 1 + 32 + 32 + 32

	// SignatureLength is the wire size of a relay signature: one recovery
	// indicator byte followed by r and s as 32-byte big-endian words.
	SignatureLength = 65

	// AuthGas is the fixed cost charged by the delegated-authorization
	// primitive per attempt, successful or not.
	AuthGas uint64 = 3100

	// RelayGasLimit is the default computation budget granted to a relay
	// invocation when the submitter does not specify one.
	RelayGasLimit uint64 = 1_000_000
)

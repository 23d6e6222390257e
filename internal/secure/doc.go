// Package secure provides memory-safe handling of discovered credential values.
//
// When a scan runs with full values retained, every raw secret is sealed in a
// memguard enclave as soon as it is captured. The plaintext only exists while a
// caller explicitly reveals it. Sealed data is:
//
//   - Encrypted at rest in memory (XSalsa20Poly1305)
//   - Protected from swapping via mlock
//   - Wiped when the locked buffer is destroyed
//
// # Usage
//
//	buf, err := secure.NewSecureString(value)
//	if err != nil {
//	    return err
//	}
//	defer buf.Destroy()
//
//	plain, err := buf.Reveal()
//
// # Platform Behavior
//
// Memory locking behavior varies by platform:
//
//   - Linux: Requires RLIMIT_MEMLOCK to be set appropriately
//   - macOS: Works out of the box
//   - Windows: Uses VirtualLock
//
// It does NOT protect against attackers with access to the running process.
package secure

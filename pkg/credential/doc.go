// Package credential defines the value model produced by an aicred scan.
//
// A scan reports every AI provider credential it finds as a DiscoveredCredential,
// grouped per application configuration into ConfigInstance values, and
// aggregated into a single ScanResult.
//
// # Redaction
//
// Credentials are redacted by default. A DiscoveredCredential is built through
// exactly one of two constructors:
//
//   - FromFull seals the raw value in an encrypted memory enclave and computes
//     its SHA-256 hash eagerly.
//   - FromRedactedPreview holds only a hash and a short preview; the raw value
//     never exists on the credential.
//
// The raw value is only reachable through RawValue. JSON encoding, the
// fmt verbs (%v, %+v, %#v, %s) and the String methods never call it, so a
// report cannot leak a secret through default output formats even when the
// scan retained full values.
//
//	cred, err := credential.FromFull("sk-proj-...")
//	if err != nil {
//	    return err
//	}
//	defer cred.Release()
//
//	fmt.Println(cred)          // openai ****abcd (VeryHigh) ...
//	raw, ok := cred.RawValue() // explicit access only
//
// # Confidence
//
// Confidence is a total order Low < Medium < High < VeryHigh. Validator scores
// in [0,1] map onto it with the fixed thresholds 0.5, 0.7 and 0.9 (see
// ConfidenceFromScore).
//
// # Immutability
//
// A ScanResult is assembled once by the discovery orchestrator and must be
// treated as read-only afterwards. Enrichment steps such as model probing
// return an annotated copy (ScanResult.WithMetadata) instead of mutating it.
package credential

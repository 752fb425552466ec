// Package wallet verifies off-chain proof of wallet ownership. A client signs
// a nonce-bearing challenge message with the private key behind an address;
// the verifier recovers the signer from the signature and compares it to the
// claimed address. No chain state is ever read.
package wallet

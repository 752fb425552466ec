package siwe

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Statement is the fixed human-readable purpose line embedded in every
// sign-in message.
const Statement = "Sign in to verify ownership of your wallet address."

const (
	// Version is the only supported message protocol version.
	Version = "1"

	headerSuffix = " wants you to sign in with your Ethereum account:"

	uriPrefix      = "URI: "
	versionPrefix  = "Version: "
	chainIDPrefix  = "Chain ID: "
	noncePrefix    = "Nonce: "
	issuedAtPrefix = "Issued At: "
)

// Message is the parsed representation of a sign-in challenge.
type Message struct {
	Domain    string
	Address   string
	Statement string
	URI       string
	Version   string
	ChainID   int
	Nonce     string
	IssuedAt  time.Time
}

// Build renders the deterministic sign-in message for the given address and
// nonce. Each field occupies its own line in a fixed order so wallets display
// a stable, reviewable prompt.
func Build(address, nonce, domain string, chainID int) string {
	var b strings.Builder

	b.WriteString(domain)
	b.WriteString(headerSuffix)
	b.WriteString("\n")
	b.WriteString(address)
	b.WriteString("\n\n")
	b.WriteString(Statement)
	b.WriteString("\n\n")
	b.WriteString(uriPrefix + "https://" + domain)
	b.WriteString("\n")
	b.WriteString(versionPrefix + Version)
	b.WriteString("\n")
	b.WriteString(chainIDPrefix + strconv.Itoa(chainID))
	b.WriteString("\n")
	b.WriteString(noncePrefix + nonce)
	b.WriteString("\n")
	b.WriteString(issuedAtPrefix + time.Now().UTC().Format(time.RFC3339))

	return b.String()
}

// Parse extracts the structured fields from a sign-in message. It returns nil
// when any required field is absent, out of order, or the address is not a
// syntactically valid 20-byte hex address. Malformed input is an expected,
// normal case (hostile clients) and never causes a panic.
func Parse(text string) *Message {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) < 10 {
		return nil
	}

	domain, ok := strings.CutSuffix(lines[0], headerSuffix)
	if !ok || domain == "" {
		return nil
	}

	address := strings.TrimSpace(lines[1])
	if !common.IsHexAddress(address) {
		return nil
	}

	if lines[2] != "" || lines[4] != "" {
		return nil
	}
	statement := lines[3]
	if statement == "" {
		return nil
	}

	uri, ok := strings.CutPrefix(lines[5], uriPrefix)
	if !ok || uri == "" {
		return nil
	}

	version, ok := strings.CutPrefix(lines[6], versionPrefix)
	if !ok || version != Version {
		return nil
	}

	chainIDRaw, ok := strings.CutPrefix(lines[7], chainIDPrefix)
	if !ok {
		return nil
	}
	chainID, err := strconv.Atoi(chainIDRaw)
	if err != nil {
		return nil
	}

	nonce, ok := strings.CutPrefix(lines[8], noncePrefix)
	if !ok || nonce == "" {
		return nil
	}

	issuedAtRaw, ok := strings.CutPrefix(lines[9], issuedAtPrefix)
	if !ok {
		return nil
	}
	issuedAt, err := time.Parse(time.RFC3339, issuedAtRaw)
	if err != nil {
		return nil
	}

	return &Message{
		Domain:    domain,
		Address:   address,
		Statement: statement,
		URI:       uri,
		Version:   version,
		ChainID:   chainID,
		Nonce:     nonce,
		IssuedAt:  issuedAt,
	}
}

// String re-renders a parsed message in the canonical wire format.
func (m *Message) String() string {
	return fmt.Sprintf("%s%s\n%s\n\n%s\n\n%s%s\n%s%s\n%s%d\n%s%s\n%s%s",
		m.Domain, headerSuffix,
		m.Address,
		m.Statement,
		uriPrefix, m.URI,
		versionPrefix, m.Version,
		chainIDPrefix, m.ChainID,
		noncePrefix, m.Nonce,
		issuedAtPrefix, m.IssuedAt.UTC().Format(time.RFC3339),
	)
}

package idx

import "github.com/gobeaver/beaver-auth/oauth"

// IdxTransactionMeta is the state of an identity transaction kept across
// steps and redirects
type IdxTransactionMeta struct {
	oauth.OAuthTransactionMeta

	Flow              FlowIdentifier `json:"flow,omitempty"`
	ActivationToken   string         `json:"activationToken,omitempty"`
	RecoveryToken     string         `json:"recoveryToken,omitempty"`
	InteractionHandle string         `json:"interactionHandle,omitempty"`
	Remediations      []string       `json:"remediations,omitempty"`
	WithCredentials   bool           `json:"withCredentials"`
}

// IdxMeta implements TransactionMeta
func (m *IdxTransactionMeta) IdxMeta() *IdxTransactionMeta {
	return m
}

// TransactionMeta is implemented by idx metadata and types embedding it
type TransactionMeta interface {
	oauth.TransactionMeta
	IdxMeta() *IdxTransactionMeta
}

// MetaFactory converts freshly built idx metadata into the client's metadata
// type
type MetaFactory[M TransactionMeta] func(*IdxTransactionMeta) M

// NewIdxTransactionMeta is the MetaFactory for *IdxTransactionMeta
func NewIdxTransactionMeta(m *IdxTransactionMeta) *IdxTransactionMeta {
	return m
}

// =============================
// File: internal/protocol/errors.go
// =============================
package protocol

import "fmt"

// Kind classifies an Error by who can correct it.
type Kind uint8

const (
	// KindInput covers caller-correctable argument problems. No state is mutated.
	KindInput Kind = iota + 1
	// KindLifecycle covers trades against a market that is not open.
	KindLifecycle
	// KindAuthorization covers signer and account mismatches checked by the collaborator layer.
	KindAuthorization
	// KindInternal means the math produced something inconsistent. Treat as fatal.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindLifecycle:
		return "lifecycle"
	case KindAuthorization:
		return "authorization"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a program error with a stable numeric code.
type Error struct {
	Code int
	Name string
	Msg  string
	kind Kind
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s, code %d)", e.Msg, e.Name, e.Code)
}

// Kind returns the error class.
func (e *Error) Kind() Kind {
	return e.kind
}

// Коды совпадают с нумерацией ошибок on-chain программы.
var (
	ErrInvalidTakerFeeRate      = &Error{6000, "InvalidTakerFeeRate", "invalid taker fee rate", KindInput}
	ErrInvalidMakerFeeRate      = &Error{6001, "InvalidMakerFeeRate", "invalid maker fee rate", KindInput}
	ErrAuthorityMismatch        = &Error{6002, "AuthorityMismatch", "authority mismatch", KindAuthorization}
	ErrFeeRecipientMismatch     = &Error{6003, "FeeRecipientMismatch", "fee recipient mismatch", KindAuthorization}
	ErrSolVaultMismatch         = &Error{6004, "SolVaultAccountMismatch", "sol vault account mismatch", KindAuthorization}
	ErrInvalidSymbol            = &Error{6005, "InvalidSymbol", "invalid symbol", KindInput}
	ErrConfigMismatch           = &Error{6006, "ConfigAccountMismatch", "config account mismatch", KindAuthorization}
	ErrCoinVaultMismatch        = &Error{6007, "CoinVaultMismatch", "coin vault mismatch", KindAuthorization}
	ErrCoinMintMismatch         = &Error{6008, "CoinMintAccountMismatch", "coin mint account mismatch", KindAuthorization}
	ErrInsufficientSupply       = &Error{6009, "InsufficientSupply", "insufficient supply", KindInput}
	ErrMaxPayExceeded           = &Error{6010, "MaxPayExceeded", "max pay exceeded", KindInput}
	ErrInsufficientReceive      = &Error{6011, "InsufficientReceive", "insufficient receive", KindInput}
	ErrAlreadyLaunched          = &Error{6012, "AlreadyLaunched", "already launched", KindLifecycle}
	ErrExactOutTooLarge         = &Error{6013, "ExactOutTooLarge", "exact out too large", KindInput}
	ErrUnexpectedOutput         = &Error{6014, "UnexpectExactOutput", "unexpected exact output", KindInternal}
	ErrInvalidReceive           = &Error{6015, "InvalidReceive", "invalid receive", KindInput}
	ErrAlreadyActivated         = &Error{6016, "AlreadyActivated", "market already activated", KindLifecycle}
	ErrNotActivated             = &Error{6017, "NotActivated", "market not activated", KindLifecycle}
	ErrArithmeticOverflow       = &Error{6018, "ArithmeticOverflow", "arithmetic overflow", KindInternal}
	ErrMarketNotFound           = &Error{6019, "MarketNotFound", "market not found", KindInput}
	ErrMarketAlreadyExists      = &Error{6020, "MarketAlreadyExists", "market already exists", KindInput}
	ErrConfigNotInitialized     = &Error{6021, "ConfigNotInitialized", "config not initialized", KindLifecycle}
	ErrConfigAlreadyInitialized = &Error{6022, "ConfigAlreadyInitialized", "config already initialized", KindLifecycle}
)

var byCode = map[int]*Error{}

func init() {
	for _, e := range []*Error{
		ErrInvalidTakerFeeRate, ErrInvalidMakerFeeRate, ErrAuthorityMismatch, ErrFeeRecipientMismatch,
		ErrSolVaultMismatch, ErrInvalidSymbol, ErrConfigMismatch, ErrCoinVaultMismatch,
		ErrCoinMintMismatch, ErrInsufficientSupply, ErrMaxPayExceeded, ErrInsufficientReceive,
		ErrAlreadyLaunched, ErrExactOutTooLarge, ErrUnexpectedOutput, ErrInvalidReceive,
		ErrAlreadyActivated, ErrNotActivated, ErrArithmeticOverflow, ErrMarketNotFound,
		ErrMarketAlreadyExists, ErrConfigNotInitialized, ErrConfigAlreadyInitialized,
	} {
		byCode[e.Code] = e
	}
}

// ErrorByCode looks up a program error by its numeric code.
func ErrorByCode(code int) (*Error, bool) {
	e, ok := byCode[code]
	return e, ok
}

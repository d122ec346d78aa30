package domain

import (
	"fmt"
	"math/big"

	"github.com/near/borsh-go"
)

// Balance is a token amount in yoctoNEAR, stored as an unsigned 128-bit
// little-endian value as required by the Borsh transaction schema.
type Balance [16]byte

// NewBalance converts a non-negative big integer into a Balance.
func NewBalance(v *big.Int) (Balance, error) {
	var b Balance
	if v == nil {
		return b, nil
	}
	if v.Sign() < 0 || v.BitLen() > 128 {
		return b, fmt.Errorf("amount %s out of u128 range", v)
	}

	buf := v.Bytes() // big-endian
	for i, c := range buf {
		b[len(buf)-1-i] = c
	}
	return b, nil
}

// BalanceFromString parses a decimal yoctoNEAR amount.
func BalanceFromString(s string) (Balance, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Balance{}, fmt.Errorf("invalid amount %q", s)
	}
	return NewBalance(v)
}

// BigInt returns the amount as a big integer.
func (b Balance) BigInt() *big.Int {
	buf := make([]byte, 16)
	for i := range b {
		buf[15-i] = b[i]
	}
	return new(big.Int).SetBytes(buf)
}

func (b Balance) String() string {
	return b.BigInt().String()
}

// Gas is a gas budget for a function call.
type Gas = uint64

// DefaultFunctionCallGas is used when a function call action omits a gas budget.
const DefaultFunctionCallGas Gas = 30_000_000_000_000

// Action is one element of a transaction, a closed Borsh enum over the chain's
// action repertoire. Variant order is part of the wire format and must not change.
type Action struct {
	Enum borsh.Enum `borsh_enum:"true"`

	CreateAccount  struct{}
	DeployContract DeployContract
	FunctionCall   FunctionCall
	Transfer       Transfer
	Stake          Stake
	AddKey         AddKey
	DeleteKey      DeleteKey
	DeleteAccount  DeleteAccount
}

type DeployContract struct {
	Code []byte
}

type FunctionCall struct {
	MethodName string
	Args       []byte
	Gas        Gas
	Deposit    Balance
}

type Transfer struct {
	Deposit Balance
}

type Stake struct {
	Stake     Balance
	PublicKey PublicKey
}

type AddKey struct {
	PublicKey PublicKey
	AccessKey AccessKey
}

type DeleteKey struct {
	PublicKey PublicKey
}

type DeleteAccount struct {
	BeneficiaryID string
}

// AccessKey is the on-chain record created by an AddKey action.
type AccessKey struct {
	Nonce      uint64
	Permission AccessKeyPermission
}

// AccessKeyPermission is the Borsh enum of key permission levels.
type AccessKeyPermission struct {
	Enum borsh.Enum `borsh_enum:"true"`

	FunctionCall FunctionCallPermission
	FullAccess   struct{}
}

// FunctionCallPermission scopes a key to a receiver and an optional method set.
type FunctionCallPermission struct {
	Allowance   *Balance
	ReceiverID  string
	MethodNames []string
}

const (
	actionCreateAccount = iota
	actionDeployContract
	actionFunctionCall
	actionTransfer
	actionStake
	actionAddKey
	actionDeleteKey
	actionDeleteAccount
)

// NewCreateAccount returns a CreateAccount action.
func NewCreateAccount() Action {
	return Action{Enum: actionCreateAccount}
}

// NewDeployContract returns a DeployContract action for the given wasm blob.
func NewDeployContract(code []byte) Action {
	return Action{Enum: actionDeployContract, DeployContract: DeployContract{Code: code}}
}

// NewFunctionCall returns a FunctionCall action. A zero gas budget is replaced
// with DefaultFunctionCallGas.
func NewFunctionCall(method string, args []byte, gas Gas, deposit Balance) Action {
	if gas == 0 {
		gas = DefaultFunctionCallGas
	}
	return Action{Enum: actionFunctionCall, FunctionCall: FunctionCall{
		MethodName: method,
		Args:       args,
		Gas:        gas,
		Deposit:    deposit,
	}}
}

// NewTransfer returns a Transfer action.
func NewTransfer(deposit Balance) Action {
	return Action{Enum: actionTransfer, Transfer: Transfer{Deposit: deposit}}
}

// NewStake returns a Stake action.
func NewStake(stake Balance, publicKey PublicKey) Action {
	return Action{Enum: actionStake, Stake: Stake{Stake: stake, PublicKey: publicKey}}
}

// NewAddFullAccessKey returns an AddKey action granting FullAccess.
func NewAddFullAccessKey(publicKey PublicKey, nonce uint64) Action {
	ak := AccessKey{Nonce: nonce}
	ak.Permission.Enum = 1
	return Action{Enum: actionAddKey, AddKey: AddKey{PublicKey: publicKey, AccessKey: ak}}
}

// NewAddFunctionCallKey returns an AddKey action scoped to a receiver.
func NewAddFunctionCallKey(publicKey PublicKey, nonce uint64, receiverID string, methods []string, allowance *Balance) Action {
	ak := AccessKey{Nonce: nonce}
	ak.Permission.FunctionCall = FunctionCallPermission{
		Allowance:   allowance,
		ReceiverID:  receiverID,
		MethodNames: methods,
	}
	return Action{Enum: actionAddKey, AddKey: AddKey{PublicKey: publicKey, AccessKey: ak}}
}

// NewDeleteKey returns a DeleteKey action.
func NewDeleteKey(publicKey PublicKey) Action {
	return Action{Enum: actionDeleteKey, DeleteKey: DeleteKey{PublicKey: publicKey}}
}

// NewDeleteAccount returns a DeleteAccount action sending any remaining balance
// to the beneficiary.
func NewDeleteAccount(beneficiaryID string) Action {
	return Action{Enum: actionDeleteAccount, DeleteAccount: DeleteAccount{BeneficiaryID: beneficiaryID}}
}

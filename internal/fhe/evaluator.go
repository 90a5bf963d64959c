package fhe

import (
	"context"
	"fmt"

	"encrypted-quest-backend/internal/models"
)

// Evaluator computes on handles on behalf of one contract. Operands must be
// granted to the contract; every result is granted to it. No method returns
// a plaintext.
type Evaluator struct {
	cp       *Coprocessor
	contract models.Address
	acl      *ACL
}

func (e *Evaluator) Contract() models.Address { return e.contract }

// Allow grants account access to h. The contract must itself hold h.
func (e *Evaluator) Allow(ctx context.Context, h models.Handle, account models.Address) error {
	if err := e.require(ctx, h); err != nil {
		return err
	}
	return e.acl.Allow(ctx, h, account)
}

// IsAllowed reports whether account holds a grant on h.
func (e *Evaluator) IsAllowed(ctx context.Context, h models.Handle, account models.Address) (bool, error) {
	return e.acl.IsAllowed(ctx, h, account)
}

// FromExternal accepts a client input handle after checking its proof is
// bound to this contract and user.
func (e *Evaluator) FromExternal(ctx context.Context, h models.Handle, proof []byte, user models.Address, want ValueType) (models.Handle, error) {
	if err := VerifyInputProof(proof, h, e.contract, user, e.cp.VerifierAddress(), e.cp.chainID); err != nil {
		return models.ZeroHandle, err
	}
	if TypeOf(h) != want {
		return models.ZeroHandle, fmt.Errorf("%w: input is %s, want %s", models.ErrInvalidProof, TypeOf(h), want)
	}
	if _, err := e.cp.store.GetCiphertext(ctx, h); err != nil {
		return models.ZeroHandle, fmt.Errorf("%w: %v", models.ErrInvalidProof, err)
	}
	if err := e.acl.Allow(ctx, h, e.contract); err != nil {
		return models.ZeroHandle, err
	}
	return h, nil
}

// AsUint64 trivially encrypts a public constant.
func (e *Evaluator) AsUint64(ctx context.Context, v uint64) (models.Handle, error) {
	return e.emit(ctx, "trivial", TypeUint64, v)
}

func (e *Evaluator) AsBool(ctx context.Context, b bool) (models.Handle, error) {
	return e.emit(ctx, "trivial", TypeBool, boolBit(b))
}

func (e *Evaluator) Add(ctx context.Context, a, b models.Handle) (models.Handle, error) {
	return e.binary(ctx, "add", TypeUint64, TypeUint64, a, b, func(x, y uint64) uint64 { return x + y })
}

func (e *Evaluator) And(ctx context.Context, a, b models.Handle) (models.Handle, error) {
	return e.binary(ctx, "and", TypeOf(a), TypeOf(a), a, b, func(x, y uint64) uint64 { return x & y })
}

func (e *Evaluator) Or(ctx context.Context, a, b models.Handle) (models.Handle, error) {
	return e.binary(ctx, "or", TypeOf(a), TypeOf(a), a, b, func(x, y uint64) uint64 { return x | y })
}

func (e *Evaluator) Eq(ctx context.Context, a, b models.Handle) (models.Handle, error) {
	return e.binary(ctx, "eq", TypeOf(a), TypeBool, a, b, func(x, y uint64) uint64 { return eqBit(x, y) })
}

// EqScalar compares an encrypted value with a public constant.
func (e *Evaluator) EqScalar(ctx context.Context, a models.Handle, v uint64) (models.Handle, error) {
	return e.scalar(ctx, "eq_scalar", a, v, func(x, y uint64) uint64 { return eqBit(x, y) })
}

func (e *Evaluator) NeScalar(ctx context.Context, a models.Handle, v uint64) (models.Handle, error) {
	return e.scalar(ctx, "ne_scalar", a, v, func(x, y uint64) uint64 { return eqBit(x, y) ^ 1 })
}

// Select returns a when cond is true and b otherwise, without revealing which.
func (e *Evaluator) Select(ctx context.Context, cond, a, b models.Handle) (models.Handle, error) {
	if TypeOf(cond) != TypeBool {
		return models.ZeroHandle, fmt.Errorf("%w: select condition is %s", ErrTypeMismatch, TypeOf(cond))
	}
	if TypeOf(a) != TypeOf(b) {
		return models.ZeroHandle, fmt.Errorf("%w: select branches %s and %s", ErrTypeMismatch, TypeOf(a), TypeOf(b))
	}
	vals, err := e.operands(ctx, cond, a, b)
	if err != nil {
		return models.ZeroHandle, err
	}
	mask := -vals[0]
	return e.emit(ctx, "select", TypeOf(a), (vals[1]&mask)|(vals[2]&^mask), cond[:], a[:], b[:])
}

func (e *Evaluator) binary(ctx context.Context, op string, in, out ValueType, a, b models.Handle, f func(x, y uint64) uint64) (models.Handle, error) {
	if TypeOf(a) != in || TypeOf(b) != in {
		return models.ZeroHandle, fmt.Errorf("%w: %s on %s and %s", ErrTypeMismatch, op, TypeOf(a), TypeOf(b))
	}
	vals, err := e.operands(ctx, a, b)
	if err != nil {
		return models.ZeroHandle, err
	}
	return e.emit(ctx, op, out, f(vals[0], vals[1]), a[:], b[:])
}

func (e *Evaluator) scalar(ctx context.Context, op string, a models.Handle, v uint64, f func(x, y uint64) uint64) (models.Handle, error) {
	vals, err := e.operands(ctx, a)
	if err != nil {
		return models.ZeroHandle, err
	}
	return e.emit(ctx, op, TypeBool, f(vals[0], v), a[:], PackValue(TypeOf(a), v))
}

func (e *Evaluator) operands(ctx context.Context, hs ...models.Handle) ([]uint64, error) {
	vals := make([]uint64, len(hs))
	for i, h := range hs {
		if err := e.require(ctx, h); err != nil {
			return nil, err
		}
		_, v, err := e.cp.get(ctx, h)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func (e *Evaluator) require(ctx context.Context, h models.Handle) error {
	ok, err := e.acl.IsAllowed(ctx, h, e.contract)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s for %s", models.ErrHandleNotAllowed, h, e.contract)
	}
	return nil
}

func (e *Evaluator) emit(ctx context.Context, op string, t ValueType, v uint64, inputs ...[]byte) (models.Handle, error) {
	h := newHandle(op, t, append(inputs, e.contract[:])...)
	if err := e.cp.put(ctx, h, t, v); err != nil {
		return models.ZeroHandle, err
	}
	if err := e.acl.Allow(ctx, h, e.contract); err != nil {
		return models.ZeroHandle, err
	}
	e.cp.countOp(op)
	return h, nil
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// eqBit is 1 when x == y, computed without a data-dependent branch.
func eqBit(x, y uint64) uint64 {
	d := x ^ y
	return ((d | -d) >> 63) ^ 1
}

package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/MolScore/pkg/errors"
)

func TestNew_SetsCodeAndMessage(t *testing.T) {
	ae := errors.New(errors.ErrCodeComponentTypeUnknown, "unknown component type")

	require.NotNil(t, ae)
	assert.Equal(t, errors.ErrCodeComponentTypeUnknown, ae.Code)
	assert.Equal(t, "unknown component type", ae.Message)
	assert.Empty(t, ae.Detail)
	assert.Nil(t, ae.Cause)
	assert.NotEmpty(t, ae.Stack)
}

func TestNewf_FormatsMessage(t *testing.T) {
	ae := errors.Newf(errors.ErrCodeScoringFunctionUnknown, "no function named %q", "lead-opt")

	assert.Equal(t, `no function named "lead-opt"`, ae.Message)
}

func TestError_Format(t *testing.T) {
	bare := errors.New(errors.CodeRunNotFound, "run not found")
	assert.Equal(t, "[RUN_004] run not found", bare.Error())

	detailed := errors.New(errors.CodeMoleculeInvalidSMILES, "invalid SMILES").
		WithDetail("input=C1CC1[invalid]")
	assert.Equal(t, "[MOL_001] invalid SMILES: input=C1CC1[invalid]", detailed.Error())
}

func TestWrap(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.Nil(t, errors.Wrap(nil, errors.CodeDBQueryError, "persist step failed"))
	})

	t.Run("chain is traversable", func(t *testing.T) {
		root := stderrors.New("dial tcp: connection refused")
		mid := errors.Wrap(root, errors.CodeDBConnectionError, "postgres unreachable")
		top := errors.Wrap(mid, errors.CodeInternal, "failed to load run")

		assert.Equal(t, mid, stderrors.Unwrap(top))
		assert.Equal(t, root, stderrors.Unwrap(mid))
		assert.True(t, stderrors.Is(top, root))
	})

	t.Run("CodeUnknown inherits the wrapped code", func(t *testing.T) {
		inner := errors.New(errors.CodeRunNotFound, "run not found")
		outer := errors.Wrap(inner, errors.CodeUnknown, "adding context")
		assert.Equal(t, errors.CodeRunNotFound, outer.Code)
	})

	t.Run("explicit code wins", func(t *testing.T) {
		inner := errors.New(errors.CodeRunNotFound, "run not found")
		outer := errors.Wrap(inner, errors.CodeInternal, "unexpected state")
		assert.Equal(t, errors.CodeInternal, outer.Code)
	})
}

func TestWithDetailAndCause_CopySemantics(t *testing.T) {
	root := stderrors.New("pq: connection reset")
	original := errors.New(errors.CodeDBConnectionError, "step record insert failed")

	dressed := original.WithDetail("run_id=7f3a step=12").WithCause(root)

	assert.Empty(t, original.Detail)
	assert.Nil(t, original.Cause)
	assert.Equal(t, "run_id=7f3a step=12", dressed.Detail)
	assert.True(t, stderrors.Is(dressed, root))
}

func TestWithDetailAndCause_NilReceiver(t *testing.T) {
	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
}

func TestIsCode(t *testing.T) {
	inner := errors.New(errors.CodeMoleculeInvalidSMILES, "bad SMILES")
	mid := errors.Wrap(inner, errors.CodeInvalidParam, "validation failed")
	outer := fmt.Errorf("handler: %w", mid)

	assert.True(t, errors.IsCode(outer, errors.CodeMoleculeInvalidSMILES))
	assert.True(t, errors.IsCode(outer, errors.CodeInvalidParam))
	assert.False(t, errors.IsCode(outer, errors.CodeRunNotFound))
	assert.False(t, errors.IsCode(nil, errors.CodeInternal))
	assert.False(t, errors.IsCode(stderrors.New("plain"), errors.CodeInternal))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))

	inner := errors.New(errors.ErrCodeAIModelNotAvailable, "model missing")
	outer := errors.Wrap(inner, errors.CodeInternal, "service init failed")
	// The outermost AppError decides.
	assert.Equal(t, errors.CodeInternal, errors.GetCode(outer))

	buried := fmt.Errorf("inference: %w", inner)
	assert.Equal(t, errors.ErrCodeAIModelNotAvailable, errors.GetCode(buried))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, errors.IsNotFound(errors.NotFound("missing")))
	assert.True(t, errors.IsNotFound(errors.New(errors.ErrCodeRunNotFound, "run gone")))
	assert.True(t, errors.IsNotFound(fmt.Errorf("repo: %w", errors.NotFound("missing"))))
	assert.False(t, errors.IsNotFound(errors.Internal("boom")))
	assert.False(t, errors.IsNotFound(nil))
}

func TestShorthandConstructors(t *testing.T) {
	cases := []struct {
		name string
		err  *errors.AppError
		code errors.ErrorCode
	}{
		{"NotFound", errors.NotFound("missing"), errors.CodeNotFound},
		{"InvalidParam", errors.InvalidParam("bad input"), errors.CodeInvalidParam},
		{"InvalidState", errors.InvalidState("run already active"), errors.CodeConflict},
		{"Internal", errors.Internal("server error"), errors.CodeInternal},
		{"Conflict", errors.Conflict("duplicate step"), errors.CodeConflict},
		{"Timeout", errors.Timeout("deadline exceeded"), errors.ErrCodeTimeout},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NotNil(t, tc.err)
			assert.Equal(t, tc.code, tc.err.Code)
			assert.NotEmpty(t, tc.err.Error())
		})
	}
}

func TestStdlibInterop(t *testing.T) {
	sentinel := errors.New(errors.ErrCodeDockingFailed, "docking failed")
	wrapped := fmt.Errorf("handler: %w", sentinel)

	assert.True(t, stderrors.Is(wrapped, sentinel))

	var ae *errors.AppError
	require.True(t, stderrors.As(wrapped, &ae))
	assert.Equal(t, errors.ErrCodeDockingFailed, ae.Code)

	// Distinct AppErrors with equal codes are still distinct errors.
	other := errors.New(errors.ErrCodeDockingFailed, "docking failed elsewhere")
	assert.False(t, stderrors.Is(wrapped, other))
}

//Personal.AI order the ending

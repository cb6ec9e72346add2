package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIs_MatchesByKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("202501010001"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrStorage)

	assert.ErrorIs(t, Validation(CodeIDRequired, "id"), ErrValidation)
	assert.ErrorIs(t, Storage(CodeSQL, "SELECT 1", errors.New("boom")), ErrStorage)
	assert.ErrorIs(t, Malformed(errors.New("bad")), ErrMalformed)
}

func TestIs_MatchesByCodeWhenGiven(t *testing.T) {
	err := Validation(CodeStateRequired, "state")
	assert.ErrorIs(t, err, &Error{Kind: KindValidation, Code: CodeStateRequired})
	assert.NotErrorIs(t, err, &Error{Kind: KindValidation, Code: CodeIDRequired})
}

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Validation(CodeIDRequired, "").Status())
	assert.Equal(t, http.StatusBadRequest, Malformed(nil).Status())
	assert.Equal(t, http.StatusNotFound, NotFound("x").Status())
	assert.Equal(t, http.StatusMethodNotAllowed, MethodNotAllowed("DELETE").Status())
	assert.Equal(t, http.StatusRequestEntityTooLarge, TooLarge(1024).Status())
	assert.Equal(t, http.StatusInternalServerError, Storage(CodeSQL, "", nil).Status())
	assert.Equal(t, http.StatusInternalServerError, From(errors.New("x")).Status())
}

func TestStorage_KeepsStatementAndCause(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := Storage(CodeSQL, "DELETE FROM game_history WHERE game_id = ?", cause)

	assert.Equal(t, KindStorage, err.Kind)
	assert.Equal(t, "DELETE FROM game_history WHERE game_id = ?", err.Statement)
	assert.ErrorIs(t, err, cause)
	assert.NotEmpty(t, err.Stack)
	assert.Contains(t, err.Error(), "SQL_ERROR")
	assert.Contains(t, err.Error(), "disk I/O error")
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))

	nf := NotFound("x")
	assert.Same(t, nf, From(fmt.Errorf("ctx: %w", nf)))

	internal := From(errors.New("boom"))
	require.NotNil(t, internal)
	assert.Equal(t, KindInternal, internal.Kind)
	assert.Equal(t, CodeServer, internal.Code)
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	dscoring "github.com/turtacn/MolScore/internal/domain/scoring"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/pkg/errors"
	stypes "github.com/turtacn/MolScore/pkg/types/scoring"
)

// maxScoreBatchSize bounds one synchronous scoring request.
const maxScoreBatchSize = 1024

// BatchScorer scores a molecule batch against an ad-hoc scoring function.
// The application layer builds the function from the request configuration,
// scores the batch, and tears the function down again.
type BatchScorer interface {
	ScoreBatch(ctx context.Context, fn dscoring.FunctionConfig, smiles []string) (*stypes.ScoreResponse, error)
}

// ScoreBatchRequest is the body of POST /api/v1/scores.
type ScoreBatchRequest struct {
	// ScoringFunction configures the aggregation strategy and components.
	ScoringFunction dscoring.FunctionConfig `json:"scoring_function"`

	// SMILES lists the molecules to score; order is preserved.
	SMILES []string `json:"smiles"`
}

// ScoringHandler serves synchronous batch scoring.
type ScoringHandler struct {
	scorer BatchScorer
	logger logging.Logger
}

// NewScoringHandler creates a scoring handler.
func NewScoringHandler(scorer BatchScorer, log logging.Logger) *ScoringHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ScoringHandler{
		scorer: scorer,
		logger: log.Named("scoring-handler"),
	}
}

// ScoreBatch handles POST /api/v1/scores.
func (h *ScoringHandler) ScoreBatch(c *gin.Context) {
	var req ScoreBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}
	if len(req.SMILES) == 0 {
		respondError(c, errors.New(errors.ErrCodeMoleculeEmptyBatch, "smiles list must not be empty"))
		return
	}
	if len(req.SMILES) > maxScoreBatchSize {
		respondError(c, errors.Newf(errors.ErrCodeBadRequest,
			"batch size %d exceeds the maximum of %d", len(req.SMILES), maxScoreBatchSize))
		return
	}

	start := time.Now()
	resp, err := h.scorer.ScoreBatch(c.Request.Context(), req.ScoringFunction, req.SMILES)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Debug("batch scored",
		logging.String("function", string(resp.FunctionName)),
		logging.Int("batch_size", len(req.SMILES)),
		logging.Duration("duration", time.Since(start)),
	)
	c.JSON(http.StatusOK, resp)
}

//Personal.AI order the ending

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolScore/internal/application/run"
	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/pkg/errors"
	"github.com/turtacn/MolScore/pkg/types/common"
	stypes "github.com/turtacn/MolScore/pkg/types/scoring"
)

// ArtifactURLSigner issues short-lived download URLs for stored artifacts.
type ArtifactURLSigner interface {
	PresignedDownloadURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// RunHandler serves run submission and inspection.
type RunHandler struct {
	runner run.Runner
	repo   run.Repository
	signer ArtifactURLSigner
	logger logging.Logger
}

// NewRunHandler creates a run handler.  The signer is optional; without it
// the artifact endpoint answers 501.
func NewRunHandler(runner run.Runner, repo run.Repository, signer ArtifactURLSigner, log logging.Logger) *RunHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &RunHandler{
		runner: runner,
		repo:   repo,
		signer: signer,
		logger: log.Named("run-handler"),
	}
}

// SubmitRun handles POST /api/v1/runs.  The body is a run configuration
// document.  By default the response streams one JSON line per completed
// step until the run finishes; with ?detach=true the run continues in the
// background and the response is an immediate 202.
func (h *RunHandler) SubmitRun(c *gin.Context) {
	cfg, err := config.ParseRunConfig(c.Request.Body)
	if err != nil {
		respondError(c, err)
		return
	}

	detach := c.Query("detach") == "true"
	if detach {
		h.submitDetached(c, cfg)
		return
	}
	h.submitStreaming(c, cfg)
}

// submitDetached starts the run decoupled from the request lifetime and
// answers immediately.  Terminal state lands in the repository.
func (h *RunHandler) submitDetached(c *gin.Context, cfg *config.RunConfig) {
	ctx := context.WithoutCancel(c.Request.Context())
	records, err := h.runner.Submit(ctx, *cfg)
	if err != nil {
		respondError(c, err)
		return
	}

	go func() {
		for range records {
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"status":   "accepted",
		"job_name": cfg.Logging.JobName,
	})
}

// submitStreaming runs synchronously and streams newline-delimited step
// records.  Closing the connection cancels the run.
func (h *RunHandler) submitStreaming(c *gin.Context, cfg *config.RunConfig) {
	records, err := h.runner.Submit(c.Request.Context(), *cfg)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "application/x-ndjson")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	enc := json.NewEncoder(c.Writer)
	for record := range records {
		if err := enc.Encode(record.ToDTO()); err != nil {
			h.logger.Warn("step record stream interrupted",
				logging.String("run_id", string(record.RunID)),
				logging.Err(err),
			)
			// Keep draining so the run is not blocked on the channel.
			for range records {
			}
			return
		}
		c.Writer.Flush()
	}
}

// GetRun handles GET /api/v1/runs/:id.
func (h *RunHandler) GetRun(c *gin.Context) {
	r, err := h.repo.GetRun(c.Request.Context(), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r.ToDTO())
}

// ListRuns handles GET /api/v1/runs.
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, offset := parsePagination(c, 50, 200)
	runs, err := h.repo.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	dtos := make([]stypes.RunDTO, 0, len(runs))
	for _, r := range runs {
		dtos = append(dtos, r.ToDTO())
	}
	c.JSON(http.StatusOK, gin.H{
		"runs":   dtos,
		"limit":  limit,
		"offset": offset,
	})
}

// ListSteps handles GET /api/v1/runs/:id/steps.
func (h *RunHandler) ListSteps(c *gin.Context) {
	runID := common.ID(c.Param("id"))
	if _, err := h.repo.GetRun(c.Request.Context(), runID); err != nil {
		respondError(c, err)
		return
	}

	limit, offset := parsePagination(c, 100, 1000)
	records, err := h.repo.ListSteps(c.Request.Context(), runID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	dtos := make([]stypes.StepRecordDTO, 0, len(records))
	for _, record := range records {
		dtos = append(dtos, record.ToDTO())
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id": runID,
		"steps":  dtos,
		"limit":  limit,
		"offset": offset,
	})
}

// artifactURLExpiry is the lifetime of issued artifact download links.
const artifactURLExpiry = 15 * time.Minute

// GetArtifactURL handles GET /api/v1/runs/:id/artifact.  It resolves the
// run's artifact URI to a presigned download URL.
func (h *RunHandler) GetArtifactURL(c *gin.Context) {
	if h.signer == nil {
		respondError(c, errors.New(errors.ErrCodeNotImplemented, "artifact store is not configured"))
		return
	}

	r, err := h.repo.GetRun(c.Request.Context(), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	if r.ArtifactURI == "" {
		respondError(c, errors.New(errors.ErrCodeNotFound, "run has no artifact"))
		return
	}

	objectName, err := objectNameFromURI(r.ArtifactURI)
	if err != nil {
		respondError(c, err)
		return
	}

	url, err := h.signer.PresignedDownloadURL(c.Request.Context(), objectName, artifactURLExpiry)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":     r.ID,
		"url":        url,
		"expires_in": int(artifactURLExpiry.Seconds()),
	})
}

// objectNameFromURI strips the s3://bucket/ prefix from a stored artifact URI.
func objectNameFromURI(uri string) (string, error) {
	trimmed := strings.TrimPrefix(uri, "s3://")
	if trimmed == uri {
		return "", errors.Newf(errors.ErrCodeInternal, "unrecognized artifact URI %q", uri)
	}
	slash := strings.IndexByte(trimmed, '/')
	if slash < 0 || slash == len(trimmed)-1 {
		return "", errors.Newf(errors.ErrCodeInternal, "artifact URI %q has no object name", uri)
	}
	return trimmed[slash+1:], nil
}

//Personal.AI order the ending

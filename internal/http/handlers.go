package http

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"notice/internal/apperr"
	"notice/internal/model"
	"notice/internal/pipeline"
	"notice/internal/search"
	"notice/internal/store"
)

const resyncBatchSize = 100

// fail maps an error onto the uniform error body. Internal errors are
// logged and masked.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			"request_id", c.Locals("request_id"),
			"path", c.Path(),
			"error", err,
		)
		msg = "internal server error"
	}
	return c.Status(status).JSON(ErrorResponse{Error: msg, Status: status})
}

func (s *Server) healthHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	deps := fiber.Map{}
	status := "ok"

	if err := s.store.Ping(ctx); err != nil {
		deps["database"] = "error"
		status = "degraded"
	} else {
		deps["database"] = "ok"
	}

	if err := s.index.Health(ctx); err != nil {
		deps["meilisearch"] = "error"
		status = "degraded"
	} else {
		deps["meilisearch"] = "ok"
	}

	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			deps["redis"] = "error"
			status = "degraded"
		} else {
			deps["redis"] = "ok"
		}
	} else {
		deps["redis"] = "disabled"
	}

	return c.JSON(fiber.Map{"status": status, "dependencies": deps})
}

// submitter reads an optional user id from the X-User-Id header of an
// authenticated request.
func submitter(c *fiber.Ctx) *uuid.UUID {
	if auth, _ := c.Locals("authenticated").(bool); !auth {
		return nil
	}
	id, err := uuid.Parse(c.Get("X-User-Id"))
	if err != nil {
		return nil
	}
	return &id
}

func (s *Server) submitHandler(c *fiber.Ctx) error {
	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, apperr.New(apperr.KindValidation, "invalid request body"))
	}

	canonical, err := store.CanonicalizeURL(req.URL)
	if err != nil {
		return s.fail(c, err)
	}

	existing, err := s.store.GetDocumentByURL(c.Context(), canonical)
	if err != nil {
		return s.fail(c, err)
	}
	if existing != nil {
		return c.JSON(SubmitResponse{
			ID:      &existing.ID,
			URL:     canonical,
			Status:  SubmitStatusExists,
			Message: "url has already been crawled",
		})
	}

	entry, err := s.store.EnqueueURL(c.Context(), canonical, model.PriorityUserSubmission, submitter(c))
	if err != nil {
		return s.fail(c, err)
	}
	if entry == nil {
		return c.JSON(SubmitResponse{
			URL:     canonical,
			Status:  SubmitStatusAlreadyQueued,
			Message: "url is already in the crawl queue",
		})
	}

	return c.JSON(SubmitResponse{
		ID:      &entry.ID,
		URL:     canonical,
		Status:  SubmitStatusQueued,
		Message: "url queued for crawling",
	})
}

func (s *Server) crawlHandler(c *fiber.Ctx) error {
	var req CrawlRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, apperr.New(apperr.KindValidation, "invalid request body"))
	}
	if req.URL == "" {
		return s.fail(c, apperr.New(apperr.KindValidation, "url is required"))
	}

	doc, err := s.pool.Crawl(c.Context(), req.URL)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(doc)
}

func (s *Server) searchHandler(c *fiber.Ctx) error {
	req := pipeline.Request{
		Query:  c.Query("q"),
		Limit:  queryInt(c, "limit", 0),
		Offset: queryInt(c, "offset", 0),
	}
	if session := c.Query("session_id"); session != "" {
		req.SessionID = &session
	}
	if id := submitter(c); id != nil {
		req.UserID = id
	}

	resp, err := s.pipe.Run(c.Context(), req)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(resp)
}

func (s *Server) listDocumentsHandler(c *fiber.Ctx) error {
	limit := queryInt(c, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	offset := queryInt(c, "offset", 0)

	docs, err := s.store.ListDocuments(c.Context(), limit, offset)
	if err != nil {
		return s.fail(c, err)
	}
	total, err := s.store.CountDocuments(c.Context())
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(DocumentsResponse{
		Documents: docs,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	})
}

func (s *Server) getDocumentHandler(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return s.fail(c, apperr.New(apperr.KindValidation, "invalid document id"))
	}
	doc, err := s.store.GetDocumentByID(c.Context(), id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(doc)
}

func (s *Server) queueStatsHandler(c *fiber.Ctx) error {
	stats, err := s.store.QueueStats(c.Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(stats)
}

func (s *Server) crawlerStatusHandler(c *fiber.Ctx) error {
	stats, err := s.store.QueueStats(c.Context())
	if err != nil {
		return s.fail(c, err)
	}

	indexed, err := s.index.DocumentCount(c.Context())
	if err != nil {
		s.logger.Warn("index document count failed", "error", err)
		indexed = 0
	}

	return c.JSON(fiber.Map{
		"crawler":         s.pool.Status(),
		"queue":           stats,
		"index_documents": indexed,
	})
}

func (s *Server) crawlerStopHandler(c *fiber.Ctx) error {
	// Stop blocks until in-flight URLs finish; don't hold the request.
	go s.pool.Stop()
	return c.JSON(fiber.Map{"message": "crawler stopping"})
}

func (s *Server) historyHandler(c *fiber.Ctx) error {
	session := c.Query("session_id")
	if session == "" {
		return s.fail(c, apperr.New(apperr.KindValidation, "session_id is required"))
	}
	limit := queryInt(c, "limit", 50)
	if limit > 100 {
		limit = 100
	}

	entries, err := s.store.ListHistory(c.Context(), session, limit)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(HistoryResponse{History: entries})
}

// resyncHandler pushes every stored document back into the full-text
// index in batches, reconciling missed upserts.
func (s *Server) resyncHandler(c *fiber.Ctx) error {
	ctx := c.Context()

	var synced, failed int64
	for offset := int64(0); ; offset += resyncBatchSize {
		docs, err := s.store.ListDocumentsFull(ctx, resyncBatchSize, offset)
		if err != nil {
			return s.fail(c, err)
		}
		if len(docs) == 0 {
			break
		}

		payloads := make([]search.Payload, 0, len(docs))
		for _, d := range docs {
			payloads = append(payloads, search.PayloadFromDocument(d))
		}
		if err := s.index.AddDocuments(ctx, payloads); err != nil {
			s.logger.Warn("resync batch failed", "offset", offset, "error", err)
			failed += int64(len(docs))
		} else {
			synced += int64(len(docs))
		}

		if len(docs) < resyncBatchSize {
			break
		}
	}

	totalStore, err := s.store.CountDocuments(ctx)
	if err != nil {
		return s.fail(c, err)
	}
	totalIndex, err := s.index.DocumentCount(ctx)
	if err != nil {
		s.logger.Warn("index document count failed", "error", err)
	}

	return c.JSON(ResyncResponse{
		Synced:       synced,
		Failed:       failed,
		TotalInStore: totalStore,
		TotalInIndex: totalIndex,
	})
}

func queryInt(c *fiber.Ctx, key string, def int64) int64 {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return def
	}
	return n
}

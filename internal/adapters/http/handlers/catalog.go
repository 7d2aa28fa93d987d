package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-presenter/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-presenter/internal/app"
	"github.com/jsamuelsen/quote-presenter/internal/domain"
)

// Auditor probes the image catalog.
type Auditor interface {
	Run(ctx context.Context) (*app.AuditReport, error)
}

// CatalogHandler serves the read-only quote and image catalogs.
type CatalogHandler struct {
	catalog *domain.Catalog
	auditor Auditor
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(catalog *domain.Catalog, auditor Auditor) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, auditor: auditor}
}

// RegisterRoutes registers the catalog routes on rg.
func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/quotes", h.ListQuotes)
	rg.GET("/quotes/:index", h.GetQuote)
	rg.GET("/images", h.ListImages)
	rg.GET("/images/audit", h.AuditImages)
}

// ListQuotes handles GET /api/v1/quotes?limit=&cursor=.
func (h *CatalogHandler) ListQuotes(c *gin.Context) {
	var req dto.PaginationRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.HandleError(c, err)
		return
	}

	page, err := dto.Paginate(h.catalog.Quotes(), req, dto.NewQuoteResponse)
	if err != nil {
		dto.HandleError(c, cursorError(err))
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetQuote handles GET /api/v1/quotes/:index.
func (h *CatalogHandler) GetQuote(c *gin.Context) {
	var req dto.QuoteIndexRequest
	if err := dto.BindURIAndValidate(c, &req); err != nil {
		dto.HandleError(c, err)
		return
	}

	q, err := h.catalog.Quote(req.Index)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(req.Index, q))
}

// ListImages handles GET /api/v1/images?limit=&cursor=.
func (h *CatalogHandler) ListImages(c *gin.Context) {
	var req dto.PaginationRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.HandleError(c, err)
		return
	}

	page, err := dto.Paginate(h.catalog.Images(), req, dto.NewImageResponse)
	if err != nil {
		dto.HandleError(c, cursorError(err))
		return
	}

	c.JSON(http.StatusOK, page)
}

// AuditImages handles GET /api/v1/images/audit.
func (h *CatalogHandler) AuditImages(c *gin.Context) {
	report, err := h.auditor.Run(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func cursorError(err error) error {
	if errors.Is(err, dto.ErrInvalidCursor) {
		return domain.NewValidationError("cursor", "invalid cursor")
	}

	return err
}

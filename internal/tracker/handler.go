package tracker

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"schematics/internal/auth"
	"schematics/internal/transfer"
)

// maxImportBytes bounds an uploaded import file.
const maxImportBytes = 8 << 20

var errImportTooLarge = errors.New("import file too large")

type Handler struct {
	Session *Session
	Tokens  auth.TokenService
}

func NewHandler(session *Session, tokens auth.TokenService) *Handler {
	return &Handler{Session: session, Tokens: tokens}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/items", h.list)
	rg.GET("/export", h.export)

	write := rg.Group("", auth.AuthMiddleware(h.Tokens))
	write.POST("/view/search", h.search)
	write.POST("/view/hide-owned", h.toggleHideOwned)
	write.POST("/view/sort", h.toggleSort)
	write.PUT("/items/:key/owned", h.setOwned)
	write.PUT("/items/:key/note", h.setNote)
	write.POST("/import", h.importCSV)
}

type listQuery struct {
	Q         *string `form:"q"`
	HideOwned *bool   `form:"hide_owned"`
	Sort      string  `form:"sort" binding:"omitempty,oneof=asc desc"`
}

// list returns the session view. Query parameters override the session's
// search, hide-owned and sort for this response only.
func (h *Handler) list(c *gin.Context) {
	var lq listQuery
	if err := c.ShouldBindQuery(&lq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: sort must be asc or desc, hide_owned a bool"})
		return
	}
	if lq.Q == nil && lq.HideOwned == nil && lq.Sort == "" {
		c.JSON(http.StatusOK, h.Session.Visible())
		return
	}

	q := h.Session.Query()
	if lq.Q != nil {
		q.Search = *lq.Q
	}
	if lq.HideOwned != nil {
		q.HideOwned = *lq.HideOwned
	}
	switch lq.Sort {
	case "asc":
		q.SortAsc = true
	case "desc":
		q.SortAsc = false
	}
	c.JSON(http.StatusOK, h.Session.VisibleFor(q))
}

type searchReq struct {
	Search string `json:"search"`
}

func (h *Handler) search(c *gin.Context) {
	var req searchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	c.JSON(http.StatusOK, h.Session.SetSearch(req.Search))
}

func (h *Handler) toggleHideOwned(c *gin.Context) {
	c.JSON(http.StatusOK, h.Session.ToggleHideOwned())
}

func (h *Handler) toggleSort(c *gin.Context) {
	c.JSON(http.StatusOK, h.Session.ToggleSort())
}

type ownedReq struct {
	Owned *bool `json:"owned"`
}

func (h *Handler) setOwned(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key required"})
		return
	}

	var req ownedReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Owned == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owned (bool) required"})
		return
	}

	v, err := h.Session.SetOwned(c.Request.Context(), key, *req.Owned)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed", "view": v})
		return
	}
	c.JSON(http.StatusOK, v)
}

type noteReq struct {
	Note *string `json:"note"`
}

func (h *Handler) setNote(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key required"})
		return
	}

	var req noteReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Note == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "note (string) required"})
		return
	}
	c.JSON(http.StatusOK, h.Session.EditNote(key, *req.Note))
}

// importCSV accepts either a multipart "file" field or a raw CSV body.
func (h *Handler) importCSV(c *gin.Context) {
	text, err := readImport(c)
	switch {
	case errors.Is(err, errImportTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error(), "limit_bytes": maxImportBytes})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, v, err := h.Session.Import(c.Request.Context(), text)
	switch {
	case errors.Is(err, transfer.ErrMissingTitle), errors.Is(err, transfer.ErrNoRows):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "count": 0})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "import failed",
			"count":     res.Count,
			"has_notes": res.HasNotes,
			"view":      v,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":     res.Count,
		"has_notes": res.HasNotes,
		"message":   res.Message(),
		"view":      v,
	})
}

// readImport reads the whole upload or fails with errImportTooLarge; a
// truncated file is never imported.
func readImport(c *gin.Context) (string, error) {
	if c.Request.ContentLength > maxImportBytes {
		return "", errImportTooLarge
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			if tooLarge(err) {
				return "", errImportTooLarge
			}
			return "", fmt.Errorf("file field required")
		}
		f, err := fh.Open()
		if err != nil {
			return "", fmt.Errorf("open upload: %w", err)
		}
		defer f.Close()
		b, err := io.ReadAll(f)
		if err != nil {
			return "", fmt.Errorf("read upload: %w", err)
		}
		return string(b), nil
	}

	b, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if tooLarge(err) {
			return "", errImportTooLarge
		}
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(b), nil
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

func (h *Handler) export(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="`+transfer.ExportFilename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(h.Session.Export()))
}

package objects

import (
	"fmt"
	"net/url"
	"strconv"

	"objstore/core/logger"
	"objstore/core/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for object operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CopyRequest is the body of a copy request.
type CopyRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// CompleteRequest lists the parts that make up a finished multipart upload.
type CompleteRequest struct {
	Chunks []storage.Chunk `json:"chunks"`
}

// MultipartResponse identifies a multipart session.
type MultipartResponse struct {
	Key      string `json:"key"`
	UploadID string `json:"upload_id"`
}

// RegisterRoutes registers the objects routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/objects")
	group.Get("/", h.HandleList)
	group.Get("/space", h.HandleSpace)
	group.Post("/copy", h.HandleCopy)
	group.Post("/folder/*", h.HandleCreateFolder)

	group.Head("/object/*", h.HandleStat)
	group.Get("/object/*", h.HandleDownload)
	group.Put("/object/*", h.HandleUpload)
	group.Delete("/object/*", h.HandleDelete)

	group.Post("/multipart/create/*", h.HandleStartMultipart)
	group.Put("/multipart/:id/parts/:number/*", h.HandleUploadPart)
	group.Post("/multipart/:id/complete/*", h.HandleCompleteMultipart)
	group.Delete("/multipart/:id/*", h.HandleAbortMultipart)
}

// RegisterPublicRoutes registers routes that bypass authentication.
func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Get("/health", h.HandleHealth)
}

// objectKey returns the unescaped wildcard part of the path.
func objectKey(c *fiber.Ctx) string {
	raw := c.Params("*")
	if key, err := url.PathUnescape(raw); err == nil {
		return key
	}
	return raw
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	l := logger.WithRayID(h.service.logger, c)
	if status >= fiber.StatusInternalServerError {
		l.Error("Storage operation failed", zap.String("path", c.Path()), zap.Error(err))
	} else {
		l.Debug("Storage request rejected", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// HandleList lists the children of a prefix.
// @Summary List Objects
// @Description Returns the immediate child names below a prefix, de-duplicated.
// @Tags objects
// @Produce json
// @Param prefix query string false "Key prefix"
// @Success 200 {object} Listing
// @Failure 502 {object} map[string]string "Backend Error"
// @Router /objects [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	listing, err := h.service.List(c.Context(), c.Query("prefix"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(listing)
}

// HandleSpace reports the backend's available space.
// @Summary Available Space
// @Tags objects
// @Produce json
// @Success 200 {object} map[string]uint64
// @Router /objects/space [get]
func (h *Handler) HandleSpace(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"available_space": h.service.AvailableSpace()})
}

// HandleStat reports existence and size without a body.
// @Summary Stat Object
// @Description Returns 200 with X-Object-Size when the key or its directory marker exists, 404 otherwise.
// @Tags objects
// @Param key path string true "Object key"
// @Success 200
// @Failure 404
// @Router /objects/object/{key} [head]
func (h *Handler) HandleStat(c *fiber.Ctx) error {
	st := h.service.Stat(c.Context(), objectKey(c))
	if !st.Exists {
		return c.SendStatus(fiber.StatusNotFound)
	}
	c.Set("X-Object-Size", strconv.FormatUint(st.Size, 10))
	c.Response().Header.SetContentLength(int(st.Size))
	return nil
}

// HandleDownload streams an object, honouring a single Range header.
// @Summary Download Object
// @Tags objects
// @Produce octet-stream
// @Param key path string true "Object key"
// @Param Range header string false "bytes=start-end"
// @Success 200 {file} binary
// @Success 206 {file} binary
// @Header 206 {string} Content-Range "bytes start-end/total"
// @Failure 400 {object} map[string]string "Invalid Range"
// @Failure 416 {object} map[string]string "Range Not Satisfiable"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /objects/object/{key} [get]
func (h *Handler) HandleDownload(c *fiber.Ctx) error {
	var rng *storage.ByteRange
	if header := c.Get(fiber.HeaderRange); header != "" {
		parsed, err := storage.ParseRange(header)
		if err != nil {
			return h.fail(c, err)
		}
		rng = parsed
	}

	body, partial, err := h.service.Open(c.Context(), objectKey(c), rng)
	if err != nil {
		if partial != nil {
			c.Set(fiber.HeaderContentRange, fmt.Sprintf("bytes */%d", partial.Total))
		}
		return h.fail(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	// fasthttp closes the body once it has been written.
	if partial == nil {
		return c.SendStream(body)
	}
	c.Set(fiber.HeaderContentRange, partial.ContentRange())
	c.Status(fiber.StatusPartialContent)
	return c.SendStream(body, int(partial.Length()))
}

// HandleUpload stores the request body at key.
// @Summary Upload Object
// @Description Bodies larger than one part are uploaded as a multipart session.
// @Tags objects
// @Accept octet-stream
// @Produce json
// @Param key path string true "Object key"
// @Success 201 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Invalid Key"
// @Failure 502 {object} map[string]string "Backend Error"
// @Router /objects/object/{key} [put]
func (h *Handler) HandleUpload(c *fiber.Ctx) error {
	key := objectKey(c)
	body := c.Body()
	if err := h.service.Put(c.Context(), key, body); err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"key": key, "size": len(body)})
}

// HandleDelete removes an object.
// @Summary Delete Object
// @Tags objects
// @Param key path string true "Object key"
// @Success 204
// @Failure 502 {object} map[string]string "Backend Error"
// @Router /objects/object/{key} [delete]
func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), objectKey(c)); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleCopy copies an object server side.
// @Summary Copy Object
// @Tags objects
// @Accept json
// @Produce json
// @Param request body CopyRequest true "Source and destination keys"
// @Success 201 {object} CopyRequest
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Source Not Found"
// @Router /objects/copy [post]
func (h *Handler) HandleCopy(c *fiber.Ctx) error {
	var req CopyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := h.service.Copy(c.Context(), req.Source, req.Destination); err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

// HandleCreateFolder writes a directory marker.
// @Summary Create Folder
// @Tags objects
// @Produce json
// @Param key path string true "Folder key"
// @Success 201 {object} map[string]string
// @Failure 404 {object} map[string]string "Invalid Key"
// @Router /objects/folder/{key} [post]
func (h *Handler) HandleCreateFolder(c *fiber.Ctx) error {
	key := objectKey(c)
	if err := h.service.CreateFolder(c.Context(), key); err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"key": key})
}

// HandleStartMultipart opens a multipart session.
// @Summary Start Multipart Upload
// @Tags multipart
// @Produce json
// @Param key path string true "Object key"
// @Success 201 {object} MultipartResponse
// @Failure 502 {object} map[string]string "Backend Error"
// @Router /objects/multipart/create/{key} [post]
func (h *Handler) HandleStartMultipart(c *fiber.Ctx) error {
	key := objectKey(c)
	id, err := h.service.StartMultipart(c.Context(), key)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(MultipartResponse{Key: key, UploadID: id})
}

// HandleUploadPart uploads the request body as one part.
// @Summary Upload Part
// @Tags multipart
// @Accept octet-stream
// @Produce json
// @Param id path string true "Upload id"
// @Param number path int true "Part number (from 1)"
// @Param key path string true "Object key"
// @Success 200 {object} storage.Chunk
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /objects/multipart/{id}/parts/{number}/{key} [put]
func (h *Handler) HandleUploadPart(c *fiber.Ctx) error {
	number, err := c.ParamsInt("number")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "part number must be an integer"})
	}
	chunk, err := h.service.UploadPart(c.Context(), c.Params("id"), objectKey(c), number, c.Body())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(chunk)
}

// HandleCompleteMultipart commits a session.
// @Summary Complete Multipart Upload
// @Tags multipart
// @Accept json
// @Produce json
// @Param id path string true "Upload id"
// @Param key path string true "Object key"
// @Param request body CompleteRequest true "Uploaded parts"
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 502 {object} map[string]string "Backend Error"
// @Router /objects/multipart/{id}/complete/{key} [post]
func (h *Handler) HandleCompleteMultipart(c *fiber.Ctx) error {
	var req CompleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	key := objectKey(c)
	if err := h.service.CompleteMultipart(c.Context(), c.Params("id"), key, req.Chunks); err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"key": key})
}

// HandleAbortMultipart discards a session.
// @Summary Abort Multipart Upload
// @Tags multipart
// @Param id path string true "Upload id"
// @Param key path string true "Object key"
// @Success 204
// @Failure 502 {object} map[string]string "Backend Error"
// @Router /objects/multipart/{id}/{key} [delete]
func (h *Handler) HandleAbortMultipart(c *fiber.Ctx) error {
	if err := h.service.AbortMultipart(c.Context(), c.Params("id"), objectKey(c)); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleHealth checks that the bucket is reachable.
// @Summary Health Check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	if err := h.service.Health(c.Context()); err != nil {
		logger.WithRayID(h.service.logger, c).Warn("Health check failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

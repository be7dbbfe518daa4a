package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/omnikit/internal/toolkit"
	"github.com/charlesng35/omnikit/pkg/response"
)

const maxToolkitBodyBytes = 10 << 20

// ToolkitHandler serves the stateless utilities. Inputs are never persisted or logged.
type ToolkitHandler struct{}

func NewToolkitHandler() *ToolkitHandler {
	return &ToolkitHandler{}
}

// LimitBody caps request bodies for toolkit routes.
func (h *ToolkitHandler) LimitBody(c *gin.Context) {
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxToolkitBodyBytes)
	}
	c.Next()
}

type diffRequest struct {
	Before   string `json:"before"`
	After    string `json:"after"`
	Mode     string `json:"mode" validate:"omitempty,oneof=line word char"`
	Semantic *bool  `json:"semantic"`
}

// POST /api/toolkit/diff
func (h *ToolkitHandler) Diff(c *gin.Context) {
	var req diffRequest
	if !bindAndValidate(c, &req) {
		return
	}
	result, err := toolkit.Diff(req.Before, req.After, toolkit.DiffOptions{Mode: req.Mode, Semantic: req.Semantic})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

type qrRequest struct {
	Content    string `json:"content" validate:"required"`
	Size       int    `json:"size"`
	Level      string `json:"level"`
	Foreground string `json:"foreground"`
	Background string `json:"background"`
	NoBorder   bool   `json:"no_border"`
	// Format "png" streams the image; anything else answers with a data URI.
	Format string `json:"format" validate:"omitempty,oneof=png json"`
}

// POST /api/toolkit/qrcode
func (h *ToolkitHandler) QRCode(c *gin.Context) {
	var req qrRequest
	if !bindAndValidate(c, &req) {
		return
	}
	result, err := toolkit.QRCode(req.Content, toolkit.QROptions{
		Size:       req.Size,
		Level:      req.Level,
		Foreground: req.Foreground,
		Background: req.Background,
		NoBorder:   req.NoBorder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if req.Format == "png" {
		c.Data(http.StatusOK, "image/png", result.PNG)
		return
	}
	response.Success(c, http.StatusOK, result)
}

type hashRequest struct {
	Input      string   `json:"input"`
	Algorithms []string `json:"algorithms" validate:"max=16"`
	HMACKey    string   `json:"hmac_key"`
	Encoding   string   `json:"encoding" validate:"omitempty,oneof=hex base64"`
	Uppercase  bool     `json:"uppercase"`
}

// POST /api/toolkit/hash
func (h *ToolkitHandler) Hash(c *gin.Context) {
	var req hashRequest
	if !bindAndValidate(c, &req) {
		return
	}
	digests, err := toolkit.Hash(req.Input, toolkit.HashOptions{
		Algorithms: req.Algorithms,
		HMACKey:    req.HMACKey,
		Encoding:   req.Encoding,
		Uppercase:  req.Uppercase,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"digests": digests})
}

type bcryptRequest struct {
	Input string `json:"input" validate:"required"`
	Cost  int    `json:"cost"`
	Hash  string `json:"hash"`
}

// POST /api/toolkit/bcrypt
func (h *ToolkitHandler) Bcrypt(c *gin.Context) {
	var req bcryptRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if req.Hash != "" {
		response.Success(c, http.StatusOK, gin.H{"match": toolkit.BcryptVerify(req.Input, req.Hash)})
		return
	}
	hashed, err := toolkit.BcryptHash(req.Input, req.Cost)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"hash": hashed})
}

type argon2Request struct {
	Input string `json:"input" validate:"required"`
	Hash  string `json:"hash"`
}

// POST /api/toolkit/argon2
func (h *ToolkitHandler) Argon2(c *gin.Context) {
	var req argon2Request
	if !bindAndValidate(c, &req) {
		return
	}
	if req.Hash != "" {
		match, err := toolkit.Argon2Verify(req.Input, req.Hash)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"match": match})
		return
	}
	hashed, err := toolkit.Argon2Hash(req.Input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"hash": hashed})
}

type uuidRequest struct {
	Version   int  `json:"version"`
	Count     int  `json:"count"`
	Uppercase bool `json:"uppercase"`
	NoHyphens bool `json:"no_hyphens"`
}

// POST /api/toolkit/uuid
func (h *ToolkitHandler) UUID(c *gin.Context) {
	var req uuidRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}
	ids, err := toolkit.UUIDs(toolkit.UUIDOptions{
		Version:   req.Version,
		Count:     req.Count,
		Uppercase: req.Uppercase,
		NoHyphens: req.NoHyphens,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"values": ids})
}

type passwordRequest struct {
	Length         int   `json:"length"`
	Count          int   `json:"count"`
	Lowercase      *bool `json:"lowercase"`
	Uppercase      *bool `json:"uppercase"`
	Digits         *bool `json:"digits"`
	Symbols        *bool `json:"symbols"`
	ExcludeSimilar bool  `json:"exclude_similar"`
}

// POST /api/toolkit/password
func (h *ToolkitHandler) Password(c *gin.Context) {
	var req passwordRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}
	values, err := toolkit.Passwords(toolkit.PasswordOptions{
		Length:         req.Length,
		Count:          req.Count,
		Lowercase:      req.Lowercase,
		Uppercase:      req.Uppercase,
		Digits:         req.Digits,
		Symbols:        req.Symbols,
		ExcludeSimilar: req.ExcludeSimilar,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"values": values})
}

type codecRequest struct {
	Codec string `json:"codec" validate:"required"`
	Input string `json:"input"`
}

// POST /api/toolkit/encode
func (h *ToolkitHandler) Encode(c *gin.Context) {
	var req codecRequest
	if !bindAndValidate(c, &req) {
		return
	}
	out, err := toolkit.Encode(req.Codec, req.Input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"output": out})
}

// POST /api/toolkit/decode
func (h *ToolkitHandler) Decode(c *gin.Context) {
	var req codecRequest
	if !bindAndValidate(c, &req) {
		return
	}
	out, err := toolkit.Decode(req.Codec, req.Input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"output": out})
}

type jsonRequest struct {
	Input    string `json:"input"`
	Indent   int    `json:"indent"`
	Minify   bool   `json:"minify"`
	SortKeys bool   `json:"sort_keys"`
	Path     string `json:"path"`
}

// POST /api/toolkit/json/format
func (h *ToolkitHandler) FormatJSON(c *gin.Context) {
	var req jsonRequest
	if !bindAndValidate(c, &req) {
		return
	}
	out, err := toolkit.FormatJSON(req.Input, toolkit.JSONOptions{
		Indent:   req.Indent,
		Minify:   req.Minify,
		SortKeys: req.SortKeys,
		Path:     req.Path,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"output": out})
}

// POST /api/toolkit/json/validate
func (h *ToolkitHandler) ValidateJSON(c *gin.Context) {
	var req jsonRequest
	if !bindAndValidate(c, &req) {
		return
	}
	response.Success(c, http.StatusOK, toolkit.ValidateJSON(req.Input))
}

// POST /api/toolkit/json/flatten
func (h *ToolkitHandler) FlattenJSON(c *gin.Context) {
	var req jsonRequest
	if !bindAndValidate(c, &req) {
		return
	}
	flat, err := toolkit.FlattenJSON(req.Input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, flat)
}

// POST /api/toolkit/json/to-yaml
func (h *ToolkitHandler) JSONToYAML(c *gin.Context) {
	var req jsonRequest
	if !bindAndValidate(c, &req) {
		return
	}
	out, err := toolkit.JSONToYAML(req.Input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"output": out})
}

// POST /api/toolkit/yaml/to-json
func (h *ToolkitHandler) YAMLToJSON(c *gin.Context) {
	var req jsonRequest
	if !bindAndValidate(c, &req) {
		return
	}
	indent := req.Indent
	if indent == 0 && !req.Minify {
		indent = 2
	}
	out, err := toolkit.YAMLToJSON(req.Input, indent)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"output": out})
}

type caseRequest struct {
	Style string `json:"style"`
	Input string `json:"input"`
}

// POST /api/toolkit/case
func (h *ToolkitHandler) Case(c *gin.Context) {
	var req caseRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if req.Style == "" {
		response.Success(c, http.StatusOK, toolkit.AllCases(req.Input))
		return
	}
	out, err := toolkit.ConvertCase(req.Style, req.Input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"output": out})
}

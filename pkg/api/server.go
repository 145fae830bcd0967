// Package api provides the REST API server for score2cnc
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hako/durafmt"
	"github.com/james-see/score2cnc/pkg/converter"
	"github.com/james-see/score2cnc/pkg/converter/devices"
	"github.com/james-see/score2cnc/pkg/score"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/time/rate"
)

// Conversion requests are rate limited per server
const (
	conversionRate  = rate.Limit(5) // Requests per second
	conversionBurst = 10
)

// maxUploadBytes caps the request body of a conversion
var maxUploadBytes int64 = 8 << 20

// @title Score2CNC API
// @version 1.0
// @description API for turning three-part scores into CNC G-code
// @host localhost:8080
// @BasePath /api/v1

// StartServer starts the API server on the specified port
func StartServer(port int) error {
	return NewRouter().Run(fmt.Sprintf(":%d", port))
}

// NewRouter builds the API routes
func NewRouter() *gin.Engine {
	return newRouter(rate.NewLimiter(conversionRate, conversionBurst))
}

func newRouter(limiter *rate.Limiter) *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/formats", listFormats)
		v1.GET("/devices", listDevices)
		limited := v1.Group("", rateLimit(limiter))
		limited.POST("/convert", handleConvert)
		limited.POST("/preview", handlePreview)
		limited.POST("/inspect", handleInspect)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func rateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "score2cnc",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns the accepted score extensions and conversion paths
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":     score.SupportedExtensions(),
		"conversions": converter.GetSupportedConversions(),
	})
}

// listDevices godoc
// @Summary List machine profiles
// @Description Returns the machine profiles and their travel envelopes
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]map[string]any
// @Router /api/v1/devices [get]
func listDevices(c *gin.Context) {
	var out []gin.H
	for _, m := range devices.List() {
		out = append(out, gin.H{
			"id":           m.ID(),
			"name":         m.Name(),
			"description":  m.Description(),
			"envelope":     m.Envelope(),
			"home":         m.Home(),
			"speed_per_hz": m.SpeedPerHz(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"devices": out})
}

// handleConvert godoc
// @Summary Convert a score to G-code
// @Description Upload a three-part score and receive a G-code program
// @Tags convert
// @Accept multipart/form-data
// @Produce text/plain
// @Param file formData file true "MusicXML, MXL or MIDI score"
// @Param device query string false "Machine profile (default: generic)"
// @Param tempo query number false "Tempo in quarter notes per minute"
// @Param score_tempo query bool false "Use the tempo embedded in the score"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/convert [post]
func handleConvert(c *gin.Context) {
	handleConversion(c, converter.FormatGCode)
}

// handlePreview godoc
// @Summary Render a score's motion plan to MIDI
// @Description Upload a three-part score and receive a MIDI preview of the quantized spans
// @Tags convert
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true "MusicXML, MXL or MIDI score"
// @Param device query string false "Machine profile (default: generic)"
// @Param tempo query number false "Tempo in quarter notes per minute"
// @Param score_tempo query bool false "Use the tempo embedded in the score"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/preview [post]
func handlePreview(c *gin.Context) {
	handleConversion(c, converter.FormatPreview)
}

// handleInspect godoc
// @Summary Inspect a score
// @Description Upload a three-part score and receive a summary of the planned motion
// @Tags convert
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "MusicXML, MXL or MIDI score"
// @Param device query string false "Machine profile (default: generic)"
// @Param tempo query number false "Tempo in quarter notes per minute"
// @Param score_tempo query bool false "Use the tempo embedded in the score"
// @Success 200 {object} converter.Report
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/inspect [post]
func handleInspect(c *gin.Context) {
	data, filename, ok := readUpload(c)
	if !ok {
		return
	}
	conv, err := converterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := conv.InspectData(data, detectFormat(filename, data))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report":   report,
		"duration": durafmt.Parse(secondsToDuration(report.Seconds)).LimitFirstN(2).String(),
	})
}

func handleConversion(c *gin.Context, toFormat converter.Format) {
	data, filename, ok := readUpload(c)
	if !ok {
		return
	}
	conv, err := converterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	format := detectFormat(filename, data)

	var (
		result      []byte
		outputExt   string
		contentType string
	)
	switch toFormat {
	case converter.FormatGCode:
		result, err = conv.ScoreToGCode(data, format)
		outputExt, contentType = ".nc", "text/plain; charset=utf-8"
	case converter.FormatPreview:
		result, err = conv.ScoreToPreview(data, format)
		outputExt, contentType = ".mid", "audio/midi"
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported conversion"})
		return
	}

	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	// Generate output filename
	outputName := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if outputName == "" || outputName == "." {
		outputName = "converted"
	}
	outputName += outputExt

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName))
	c.Data(http.StatusOK, contentType, result)
}

func readUpload(c *gin.Context) ([]byte, string, bool) {
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("Upload exceeds %d bytes", maxUploadBytes)})
			return nil, "", false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return nil, "", false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return nil, "", false
	}
	return data, header.Filename, true
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func detectFormat(filename string, data []byte) score.Format {
	if f := score.DetectFormat(filename); f != score.FormatUnknown {
		return f
	}
	return score.DetectFormatFromContent(data)
}

// converterFromQuery builds a converter for the requested machine profile
// with optional tempo overrides
func converterFromQuery(c *gin.Context) (*converter.Converter, error) {
	m, err := devices.Lookup(c.Query("device"))
	if err != nil {
		return nil, err
	}
	cfg := converter.ConfigFor(m)

	if v := c.Query("tempo"); v != "" {
		tempo, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid tempo %q", v)
		}
		cfg.Tempo = tempo
	}
	if v := c.Query("score_tempo"); v != "" {
		use, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid score_tempo %q", v)
		}
		cfg.UseScoreTempo = use
	}

	return converter.New(cfg), nil
}

// statusFor maps bad input to 400 and everything else to 500
func statusFor(err error) int {
	var pe *score.ParseError
	var ce *converter.ConfigError
	var pm *converter.PartMismatchError
	var ee *converter.ExhaustedPartError
	if errors.As(err, &pe) || errors.As(err, &ce) || errors.As(err, &pm) || errors.As(err, &ee) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

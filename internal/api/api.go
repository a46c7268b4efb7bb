// Package api exposes the conversion service over HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/signalsfoundry/timescale/convert"
	"github.com/signalsfoundry/timescale/eop"
	"github.com/signalsfoundry/timescale/iau"
	"github.com/signalsfoundry/timescale/internal/logging"
)

// TableSource reports the Earth-orientation table currently in service.
// It is nil when the daemon runs on a fixed TT-UT1 offset.
type TableSource interface {
	Current() *eop.Table
}

// Server is the HTTP front end over a Converter.
type Server struct {
	converter *convert.Converter
	provider  eop.Provider
	tables    TableSource
	log       logging.Logger
	router    *gin.Engine
}

// New assembles the router. provider and tables may be nil.
func New(converter *convert.Converter, provider eop.Provider, tables TableSource, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		converter: converter,
		provider:  provider,
		tables:    tables,
		log:       log,
		router:    router,
	}

	router.GET("/healthz", s.healthz)
	router.GET("/v1/eop", s.eopStatus)
	router.POST("/v1/convert", s.convert)

	return s
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

type convertRequest struct {
	TDB1 float64 `json:"tdb1" binding:"required"`
	TDB2 float64 `json:"tdb2"`

	// DeltaT pins TT-UT1 in seconds; when absent the Earth-orientation
	// source is consulted.
	DeltaT *float64 `json:"deltaT"`

	// ClockLocationMeters is the geocentric rectangular clock position,
	// exactly three components. Absent means geocenter.
	ClockLocationMeters []float64 `json:"clockLocationMeters"`
}

type convertResponse struct {
	TT1      float64  `json:"tt1"`
	TT2      float64  `json:"tt2"`
	Warnings []string `json:"warnings,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) convert(c *gin.Context) {
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	res, err := s.converter.Convert(c.Request.Context(),
		iau.SplitDate{D1: req.TDB1, D2: req.TDB2},
		convert.Options{
			DeltaT:              req.DeltaT,
			ClockLocationMeters: req.ClockLocationMeters,
		})
	if err != nil {
		s.log.Warn(c.Request.Context(), "conversion failed", logging.Err(err))
		c.JSON(statusFor(err), errorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, convertResponse{
		TT1:      res.TT.D1,
		TT2:      res.TT.D2,
		Warnings: res.Warnings,
	})
}

type eopStatusResponse struct {
	Source   string  `json:"source"`
	Rows     int     `json:"rows,omitempty"`
	FirstMJD float64 `json:"firstMJD,omitempty"`
	LastMJD  float64 `json:"lastMJD,omitempty"`

	// TTMinusUT1 is filled only when the request carries utc1/utc2
	// query parameters.
	TTMinusUT1 *float64 `json:"ttMinusUT1,omitempty"`
}

// eopStatus reports the table in service and, when a UTC Julian Date is
// supplied via utc1/utc2, answers a TT-UT1 lookup for diagnostics.
func (s *Server) eopStatus(c *gin.Context) {
	resp := eopStatusResponse{Source: "fixed"}
	if s.tables != nil {
		table := s.tables.Current()
		first, last := table.Span()
		resp = eopStatusResponse{
			Source:   "finals",
			Rows:     table.Len(),
			FirstMJD: first,
			LastMJD:  last,
		}
	}

	if raw1 := c.Query("utc1"); raw1 != "" {
		if s.provider == nil {
			c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "no earth orientation source configured"})
			return
		}
		utc1, err := strconv.ParseFloat(raw1, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "bad utc1: " + err.Error()})
			return
		}
		utc2 := 0.0
		if raw2 := c.Query("utc2"); raw2 != "" {
			if utc2, err = strconv.ParseFloat(raw2, 64); err != nil {
				c.JSON(http.StatusBadRequest, errorResponse{Error: "bad utc2: " + err.Error()})
				return
			}
		}

		offset, err := s.provider.TTMinusUT1(c.Request.Context(), iau.SplitDate{D1: utc1, D2: utc2})
		if err != nil {
			code := http.StatusServiceUnavailable
			if errors.Is(err, eop.ErrNoData) {
				code = http.StatusNotFound
			}
			c.JSON(code, errorResponse{Error: err.Error()})
			return
		}
		resp.TTMinusUT1 = &offset
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, convert.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, convert.ErrDateOutOfRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, convert.ErrEOPUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	reservationdomain "github.com/hostwise/nightly/internal/reservation/domain"
)

func (s *Server) ListBookings(c *gin.Context) {
	reservations, err := s.reservationSvc.ListRange(c.Request.Context(), reservationdomain.ListReservationsRequest{
		Start: c.Query("start"),
		End:   c.Query("end"),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": reservations})
}

func (s *Server) CreateBooking(c *gin.Context) {
	var req reservationdomain.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}

	reservation, err := s.reservationSvc.Create(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, reservation)
}

func (s *Server) UpdateBooking(c *gin.Context) {
	var req reservationdomain.UpdateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}
	req.ID = c.Param("id")

	reservation, err := s.reservationSvc.Update(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}

func (s *Server) DeleteBooking(c *gin.Context) {
	if err := s.reservationSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

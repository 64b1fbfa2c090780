package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"umrah-backoffice/internal/calc"
	"umrah-backoffice/internal/domain"
	invoicesvc "umrah-backoffice/internal/service/invoice"
)

type statusRequest struct {
	Status domain.InvoiceStatus `json:"status" binding:"required"`
}

func listInvoicesHandler(svc InvoiceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f calc.InvoiceFilter
		if err := c.ShouldBindQuery(&f); err != nil {
			badRequest(c, err)
			return
		}
		res, err := svc.List(c.Request.Context(), mustActor(c), f)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func createInvoiceHandler(svc InvoiceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in invoicesvc.Input
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		inv, err := svc.Create(c.Request.Context(), mustActor(c), in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, inv)
	}
}

func getInvoiceHandler(svc InvoiceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		inv, err := svc.Get(c.Request.Context(), mustActor(c), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, inv)
	}
}

func updateInvoiceHandler(svc InvoiceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var p domain.InvoicePatch
		if err := c.ShouldBindJSON(&p); err != nil {
			badRequest(c, err)
			return
		}
		inv, err := svc.Update(c.Request.Context(), mustActor(c), c.Param("id"), p)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, inv)
	}
}

func updateInvoiceStatusHandler(svc InvoiceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		inv, err := svc.UpdateStatus(c.Request.Context(), mustActor(c), c.Param("id"), req.Status)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, inv)
	}
}

func deleteInvoiceHandler(svc InvoiceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), mustActor(c), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func dashboardHandler(svc InvoiceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.Dashboard(c.Request.Context(), mustActor(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func todayHandler(svc InvoiceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		invoices, err := svc.Today(c.Request.Context(), mustActor(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoices)
	}
}

func performanceHandler(svc InvoiceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := svc.AgentPerformance(c.Request.Context(), mustActor(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

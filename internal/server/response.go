package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Details string      `json:"details,omitempty"`
}

const (
	codeOK              = 0
	codeBadRequest      = 10001
	codeNotFound        = 10004
	codeNoData          = 20001
	codeProviderFailure = 30001
	codeInternal        = 50000
)

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: codeOK, Message: "success", Data: data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: codeOK, Message: "success", Data: data})
}

func fail(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, Response{Code: code, Message: message})
}

func failWithDetails(c *gin.Context, httpStatus, code int, message, details string) {
	c.JSON(httpStatus, Response{Code: code, Message: message, Details: details})
}

func badRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, codeBadRequest, message)
}

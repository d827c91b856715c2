package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/txn2/uartdbg/pkg/uartapi/types"
)

func respondOK(c *gin.Context, status int, data interface{}, count int) {
	c.JSON(status, types.Response{
		Success: true,
		Data:    data,
		Meta: &types.MetaInfo{
			Count:     count,
			Timestamp: time.Now(),
		},
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, types.Response{
		Success: false,
		Error: &types.ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}

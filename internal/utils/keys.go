package utils

import (
	"strconv"

	"github.com/google/uuid"
)

func BuildProductsListCacheKey(limit int, cursor string) string {
	return "products:list:v1:limit=" + strconv.Itoa(limit) + ":cursor=" + cursor
}

func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

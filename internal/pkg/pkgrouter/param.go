package pkgrouter

import (
	"context"
	"strconv"

	"github.com/julienschmidt/httprouter"
)

// GetParam reads a path parameter from the request context (as stored by httprouter).
func GetParam(ctx context.Context, key string) string {
	return httprouter.ParamsFromContext(ctx).ByName(key)
}

// GetParamInt64 reads a base-10 numeric path parameter, such as a snowflake id.
func GetParamInt64(ctx context.Context, key string) (int64, error) {
	return strconv.ParseInt(GetParam(ctx, key), 10, 64)
}

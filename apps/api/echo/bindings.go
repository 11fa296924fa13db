package echoapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/xmu-se/crms/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// pathID parses the positive integer path param `name`.
func pathID(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewArgumentError(fmt.Sprintf("invalid %s: %q", name, ctx.Param(name)))
	}
	return id, nil
}

// bindBody decodes the JSON body into v. Unlike ctx.Bind, path and query params are left out.
func bindBody(ctx echo.Context, v interface{}) error {
	req := ctx.Request()
	if req.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(req.Body).Decode(v); err != nil && err != io.EOF {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed JSON body").SetInternal(err)
	}
	return nil
}

// created sets the Location header and responds 201 with data.
func created(ctx echo.Context, location string, data interface{}) error {
	ctx.Response().Header().Set(echo.HeaderLocation, location)
	return ctx.JSON(http.StatusCreated, data)
}

type (
	idResponse struct {
		ID int64 `json:"id"`
	}

	urlResponse struct {
		URL string `json:"url"`
	}

	successResponse struct {
		Success string `json:"success"`
	}
)

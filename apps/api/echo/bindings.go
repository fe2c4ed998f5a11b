package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/edupilot/core"
)

var orderingParam = "ordering"

// Ordering binds `?ordering=-score,name` to a list of orderings.
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
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

// indexParam reads a 0-based position from the path.
func indexParam(ctx echo.Context, name string) (int, error) {
	i, err := strconv.Atoi(ctx.Param(name))
	if err != nil || i < 0 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: name + " must be a non-negative integer"})
	}
	return i, nil
}

package views

import (
	"context"

	"github.com/AdamBeresnev/championship-draw/internal/middleware"
	users "github.com/AdamBeresnev/championship-draw/internal/user"
)

func GetOperator(ctx context.Context) *users.Operator {
	return middleware.GetAuthenticatedOperator(ctx)
}

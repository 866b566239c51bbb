package checkout

import (
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/metrics"
)

func emptyCartError() error {
	return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
}

func paymentIncompleteError() error {
	return pkgerrors.New(pkgerrors.CodePaymentIncomplete, "payment not successful")
}

func sessionNotFoundError() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
}

func outcomeFor(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart):
		return metrics.OutcomeEmptyCart
	case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock):
		return metrics.OutcomeInsufficientStock
	default:
		return metrics.OutcomeFailed
	}
}

package workflow

import (
	"fmt"
	"strings"

	"leaseflow/internal/model"

	"github.com/google/uuid"
)

// DeepLink is the client route for ref as seen by role.
func DeepLink(role model.Role, ref EntityRef) string {
	prefix := "/" + strings.ToLower(string(role))
	switch ref.Type {
	case model.EntityOffer:
		return fmt.Sprintf("%s/applications/%s/offers/%s", prefix, ref.Parent, ref.ID)
	case model.EntityContract:
		return fmt.Sprintf("%s/contracts/%s", prefix, ref.ID)
	case model.EntityContractRequest:
		return fmt.Sprintf("%s/contracts/%s/requests/%s", prefix, ref.Parent, ref.ID)
	default:
		return fmt.Sprintf("%s/applications/%s", prefix, ref.ID)
	}
}

func applicationRef(app model.Application) EntityRef {
	return EntityRef{Type: model.EntityApplication, ID: app.ID}
}

func offerRef(o model.Offer) EntityRef {
	return EntityRef{Type: model.EntityOffer, ID: o.ID, Parent: o.ApplicationID}
}

func contractRef(id, applicationID uuid.UUID) EntityRef {
	return EntityRef{Type: model.EntityContract, ID: id, Parent: applicationID}
}

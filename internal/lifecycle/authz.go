package lifecycle

import (
	"github.com/google/uuid"

	"github.com/Leganyst/consulting-platform/internal/domain"
)

// Участники брони, нужные для проверки прав.
type BookingParties struct {
	ClientUserID   uuid.UUID
	ProviderUserID uuid.UUID
}

// AuthorizeBookingCancel: отменить может клиент брони, её консультант или админ.
func AuthorizeBookingCancel(p domain.Principal, parties BookingParties) error {
	if p.IsAdmin() || p.UserID == parties.ClientUserID || p.UserID == parties.ProviderUserID {
		return nil
	}
	return domain.Denied("only the booking's client or provider can cancel it")
}

// AuthorizeBookingProgress: начать и завершить сессию может только её консультант или админ.
func AuthorizeBookingProgress(p domain.Principal, parties BookingParties) error {
	if p.IsAdmin() || p.UserID == parties.ProviderUserID {
		return nil
	}
	return domain.Denied("only the booking's provider can change its progress")
}

// AuthorizeProviderManage: профилем и доступностью консультанта управляет он сам или админ.
func AuthorizeProviderManage(p domain.Principal, providerUserID uuid.UUID) error {
	if p.IsAdmin() || p.UserID == providerUserID {
		return nil
	}
	return domain.Denied("only the provider can manage this profile")
}

// AuthorizeProjectOwner: проектом управляет его клиент или админ.
func AuthorizeProjectOwner(p domain.Principal, clientID uuid.UUID) error {
	if p.IsAdmin() || p.UserID == clientID {
		return nil
	}
	return domain.Denied("project belongs to another client")
}

// AuthorizeAdmin пропускает только администраторов.
func AuthorizeAdmin(p domain.Principal) error {
	if p.IsAdmin() {
		return nil
	}
	return domain.Denied("admin role required")
}

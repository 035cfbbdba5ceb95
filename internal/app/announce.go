package app

import (
	"fmt"

	"github.com/eliote-geeks/vibestore-live/internal/domain"
)

// Client-facing announcements are in French, matching the platform's audience.

func broadcastAnnouncement(role domain.Role, userName string) string {
	switch role {
	case domain.RoleCurrentParticipant:
		return fmt.Sprintf("🎤 %s commence sa PERFORMANCE EN DIRECT ! 🎵", userName)
	case domain.RoleCompetitionAdmin:
		return fmt.Sprintf("📢 %s (organisateur) prend la parole", userName)
	case domain.RolePlatformAdmin:
		return fmt.Sprintf("🛡️ %s (administrateur) prend la parole", userName)
	default:
		return fmt.Sprintf("🔊 %s commence à diffuser", userName)
	}
}

func performerChangeAnnouncement(userName string) string {
	return fmt.Sprintf("🎭 C'est au tour de %s ! Préparez-vous pour sa performance ! 🎵", userName)
}

package security

import (
	"github.com/evopanel/evopanel/models"
)

// IsUserLocked reports whether the username accumulated the maximum
// number of failed attempts inside the trailing lockout window. A
// query failure reads as not-locked so a broken attempts table cannot
// lock everyone out.
func (s *Service) IsUserLocked(username string) bool {
	cutoff := s.now().Add(-s.lockoutWindow)

	var count int64
	err := s.db.Model(&models.LoginAttempt{}).
		Where("username = ? AND success = ? AND created_at > ?", username, false, cutoff).
		Count(&count).Error
	if err != nil {
		return false
	}
	return count >= int64(s.maxLoginAttempts)
}

// LogLoginAttempt appends one attempt row and prunes rows older than
// 24 hours on the same write, so cleanup needs no background job.
func (s *Service) LogLoginAttempt(username, ip string, success bool) error {
	attempt := models.LoginAttempt{
		Username:  username,
		IP:        ip,
		Success:   success,
		CreatedAt: s.now(),
	}
	if err := s.db.Create(&attempt).Error; err != nil {
		return err
	}

	cutoff := s.now().Add(-attemptRetention)
	return s.db.Where("created_at < ?", cutoff).Delete(&models.LoginAttempt{}).Error
}

// ClearLoginAttempts drops every attempt row for the username, called
// after a successful authentication.
func (s *Service) ClearLoginAttempts(username string) error {
	return s.db.Where("username = ?", username).Delete(&models.LoginAttempt{}).Error
}

package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/session"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/validation"
)

var (
	ErrReportNotFound   = errors.New("report not found")
	ErrAlreadyBlocked   = errors.New("user already blocked")
	ErrSelfBlock        = errors.New("cannot block yourself")
	ErrContentRejected  = errors.New("content rejected")
	ErrInvalidReportArg = errors.New("invalid report")
)

// RejectionError says why a text was refused. It matches ErrContentRejected.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return rejectionMessage(e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return ErrContentRejected
}

var BannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "shitty", "bullshit",
	"ass", "asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
	"porn", "porno", "nude", "nudes",
	"spam", "scam", "scammer", "phishing", "malware",
}

type ModerationService struct {
	db                  *gorm.DB
	sessions            *session.Manager
	bannedWordRegexps   []*regexp.Regexp
	urlPattern          *regexp.Regexp
	emailPattern        *regexp.Regexp
	phonePattern        *regexp.Regexp
	repeatedCharPattern *regexp.Regexp
	allCapsPattern      *regexp.Regexp
	compiled            bool
	mu                  sync.RWMutex
}

func NewModerationService(db *gorm.DB, sessions *session.Manager) *ModerationService {
	s := &ModerationService{db: db, sessions: sessions}
	s.compilePatterns()
	return s
}

func (s *ModerationService) compilePatterns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.compiled {
		return
	}

	s.bannedWordRegexps = make([]*regexp.Regexp, 0, len(BannedWords))
	for _, word := range BannedWords {
		pattern := `(?i)\b` + regexp.QuoteMeta(word) + `\b`
		re, err := regexp.Compile(pattern)
		if err == nil {
			s.bannedWordRegexps = append(s.bannedWordRegexps, re)
		}
	}

	s.urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`)
	s.emailPattern = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	s.phonePattern = regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}|\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`)
	s.repeatedCharPattern = regexp.MustCompile(`(?i)(a{4,}|b{4,}|c{4,}|d{4,}|e{4,}|f{4,}|g{4,}|h{4,}|i{4,}|j{4,}|k{4,}|l{4,}|m{4,}|n{4,}|o{4,}|p{4,}|q{4,}|r{4,}|s{4,}|t{4,}|u{4,}|v{4,}|w{4,}|x{4,}|y{4,}|z{4,}|!{4,}|\?{4,}|\.{4,})`)
	s.allCapsPattern = regexp.MustCompile(`[A-Z]{5,}`)
	s.compiled = true
}

func (s *ModerationService) FilterContent(text string) (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if text == "" {
		return true, ""
	}
	for _, re := range s.bannedWordRegexps {
		if re.MatchString(text) {
			return false, "inappropriate_language"
		}
	}
	if s.urlPattern.MatchString(text) {
		return false, "url_not_allowed"
	}
	if s.emailPattern.MatchString(text) {
		return false, "contact_info_not_allowed"
	}
	if s.phonePattern.MatchString(text) {
		return false, "contact_info_not_allowed"
	}
	if s.repeatedCharPattern.MatchString(text) {
		return false, "spam_detected"
	}
	capsMatches := s.allCapsPattern.FindAllString(text, -1)
	if len(capsMatches) > 2 {
		return false, "excessive_caps"
	}
	return true, ""
}

func rejectionMessage(reason string) string {
	messages := map[string]string{
		"inappropriate_language":   "Your text contains inappropriate language.",
		"url_not_allowed":          "URLs and web links are not allowed.",
		"contact_info_not_allowed": "Contact information is not allowed.",
		"spam_detected":            "Your text appears to be spam.",
		"excessive_caps":           "Please avoid using excessive capital letters.",
	}
	if msg, ok := messages[reason]; ok {
		return msg
	}
	return "Your text does not meet our content guidelines."
}

// Screen strips markup from text and runs the content filter on the result.
// It returns the cleaned text or a *RejectionError.
func (s *ModerationService) Screen(text string) (string, error) {
	clean := validation.Sanitize(text)
	if ok, reason := s.FilterContent(clean); !ok {
		return "", &RejectionError{Reason: reason}
	}
	return clean, nil
}

var reportTypes = map[string]bool{"user": true, "confession": true, "message": true, "chat": true}

func (s *ModerationService) CreateReport(ctx context.Context, reporterID uuid.UUID, req *dto.CreateReportRequest) (*models.Report, error) {
	if !reportTypes[req.ContentType] {
		return nil, fmt.Errorf("%w: content_type must be user, confession, message or chat", ErrInvalidReportArg)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidReportArg)
	}

	report := models.Report{
		ReporterID:  reporterID,
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
		Reason:      req.Reason,
		Status:      "pending",
	}
	if err := s.db.WithContext(ctx).Create(&report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return &report, nil
}

// ReportConfession hides a confession from the reporter for good and files a
// report for the moderators.
func (s *ModerationService) ReportConfession(ctx context.Context, reporterID uuid.UUID, confessionID, reason string) (*models.Report, error) {
	if err := s.sessions.ReportConfession(ctx, reporterID.String(), confessionID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		reason = "reported from feed"
	}
	return s.CreateReport(ctx, reporterID, &dto.CreateReportRequest{
		ContentType: "confession",
		ContentID:   confessionID,
		Reason:      reason,
	})
}

func (s *ModerationService) ListReports(ctx context.Context, status string, limit, offset int) ([]models.Report, int64, error) {
	var reports []models.Report
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Report{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	query.Count(&total)

	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (s *ModerationService) ActionReport(ctx context.Context, reportID uuid.UUID, req *dto.ActionReportRequest) error {
	validStatuses := map[string]bool{"reviewed": true, "actioned": true, "dismissed": true}
	if !validStatuses[req.Status] {
		return fmt.Errorf("%w: status must be reviewed, actioned, or dismissed", ErrInvalidReportArg)
	}

	result := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ?", reportID).
		Updates(map[string]interface{}{
			"status":     req.Status,
			"admin_note": req.AdminNote,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrReportNotFound
	}
	return nil
}

// BlockUser records the block and hides the blocked user's confessions from
// the blocker's feed.
func (s *ModerationService) BlockUser(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	if blockerID == blockedID {
		return ErrSelfBlock
	}

	var existing models.Block
	if err := s.db.WithContext(ctx).Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).First(&existing).Error; err == nil {
		return ErrAlreadyBlocked
	}

	block := models.Block{BlockerID: blockerID, BlockedID: blockedID}
	if err := s.db.WithContext(ctx).Create(&block).Error; err != nil {
		return err
	}
	return s.sessions.Update(ctx, blockerID.String(), func(st *session.State) error {
		st.BlockUser(blockedID.String())
		return nil
	})
}

func (s *ModerationService) UnblockUser(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	err := s.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{}).Error
	if err != nil {
		return err
	}
	return s.sessions.Update(ctx, blockerID.String(), func(st *session.State) error {
		st.UnblockUser(blockedID.String())
		return nil
	})
}

func (s *ModerationService) GetBlockedIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var blocks []models.Block
	if err := s.db.WithContext(ctx).Where("blocker_id = ?", userID).Find(&blocks).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(blocks))
	for i, b := range blocks {
		ids[i] = b.BlockedID
	}
	return ids, nil
}

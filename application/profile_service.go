package application

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shiftmatch/domain"
)

// MaxUploadBytes bounds certificate and document uploads.
const MaxUploadBytes = 10 << 20

var allowedUploadExt = map[string]bool{".pdf": true, ".txt": true, ".jpg": true, ".jpeg": true, ".png": true}

// ProfileUpdate holds the editable profile fields. Nil pointers are left unchanged.
type ProfileUpdate struct {
	Name             *string   `json:"name" validate:"omitempty,min=1,max=128"`
	LastNameKana     *string   `json:"last_name_kana" validate:"omitempty,max=64"`
	FirstNameKana    *string   `json:"first_name_kana" validate:"omitempty,max=64"`
	BirthDate        *string   `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Gender           *string   `json:"gender" validate:"omitempty,max=16"`
	Nationality      *string   `json:"nationality" validate:"omitempty,max=64"`
	PostalCode       *string   `json:"postal_code" validate:"omitempty,max=16"`
	Prefecture       *string   `json:"prefecture"`
	City             *string   `json:"city" validate:"omitempty,max=64"`
	AddressLine      *string   `json:"address_line" validate:"omitempty,max=255"`
	PhoneNumber      *string   `json:"phone_number" validate:"omitempty,max=32"`
	EmergencyName    *string   `json:"emergency_name" validate:"omitempty,max=128"`
	EmergencyPhone   *string   `json:"emergency_phone" validate:"omitempty,max=32"`
	CurrentWorkStyle *string   `json:"current_work_style" validate:"omitempty,max=64"`
	DesiredWorkStyle *string   `json:"desired_work_style" validate:"omitempty,max=64"`
	ExperienceFields *[]string `json:"experience_fields"`
	Qualifications   *[]string `json:"qualifications"`
	SelfPR           *string   `json:"self_pr" validate:"omitempty,max=2000"`
	BankCode         *string   `json:"bank_code" validate:"omitempty,len=4,numeric"`
	BankName         *string   `json:"bank_name" validate:"omitempty,max=128"`
	BranchCode       *string   `json:"branch_code" validate:"omitempty,len=3,numeric"`
	BranchName       *string   `json:"branch_name" validate:"omitempty,max=128"`
	AccountName      *string   `json:"account_name" validate:"omitempty,max=128"`
	AccountNumber    *string   `json:"account_number" validate:"omitempty,max=16,numeric"`
}

type ProfileView struct {
	User          *domain.User               `json:"user"`
	Certificates  []domain.WorkerCertificate `json:"certificates"`
	MissingFields []string                   `json:"missing_fields"`
	IsComplete    bool                       `json:"is_complete"`
}

type Upload struct {
	FileName string
	Data     []byte
}

type ProfileService struct {
	users     UserRepository
	certs     CertificateRepository
	storage   FileStorage
	extractor TextExtractor
	logger    *zap.Logger
}

func NewProfileService(r Repositories, storage FileStorage, extractor TextExtractor, logger *zap.Logger) *ProfileService {
	return &ProfileService{users: r.Users, certs: r.Certificates, storage: storage, extractor: extractor, logger: logger}
}

func (s *ProfileService) Get(ctx context.Context, userID uint) (*ProfileView, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	certs, err := s.certs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	if certs == nil {
		certs = []domain.WorkerCertificate{}
	}
	missing := domain.MissingProfileFields(*u, certifiedSet(certs))
	if missing == nil {
		missing = []string{}
	}
	return &ProfileView{User: u, Certificates: certs, MissingFields: missing, IsComplete: len(missing) == 0}, nil
}

func (s *ProfileService) Update(ctx context.Context, userID uint, in ProfileUpdate) (*ProfileView, error) {
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Prefecture != nil && *in.Prefecture != "" {
		pref, ok := domain.NormalizePrefecture(*in.Prefecture)
		if !ok {
			return nil, domain.Validation("都道府県が不正です")
		}
		in.Prefecture = &pref
	}
	if in.BirthDate != nil {
		if *in.BirthDate == "" {
			u.BirthDate = nil
		} else {
			d, err := domain.ParseJSTDate(*in.BirthDate)
			if err != nil {
				return nil, domain.Validation("生年月日が不正です")
			}
			u.BirthDate = &d
		}
	}
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	setString(&u.Name, in.Name)
	setString(&u.LastNameKana, in.LastNameKana)
	setString(&u.FirstNameKana, in.FirstNameKana)
	setString(&u.Gender, in.Gender)
	setString(&u.Nationality, in.Nationality)
	setString(&u.PostalCode, in.PostalCode)
	setString(&u.Prefecture, in.Prefecture)
	setString(&u.City, in.City)
	setString(&u.AddressLine, in.AddressLine)
	setString(&u.PhoneNumber, in.PhoneNumber)
	setString(&u.EmergencyName, in.EmergencyName)
	setString(&u.EmergencyPhone, in.EmergencyPhone)
	setString(&u.CurrentWorkStyle, in.CurrentWorkStyle)
	setString(&u.DesiredWorkStyle, in.DesiredWorkStyle)
	setString(&u.SelfPR, in.SelfPR)
	setString(&u.BankCode, in.BankCode)
	setString(&u.BankName, in.BankName)
	setString(&u.BranchCode, in.BranchCode)
	setString(&u.BranchName, in.BranchName)
	setString(&u.AccountName, in.AccountName)
	setString(&u.AccountNumber, in.AccountNumber)
	if in.ExperienceFields != nil {
		u.ExperienceFields = *in.ExperienceFields
	}
	if in.Qualifications != nil {
		u.Qualifications = *in.Qualifications
	}
	if err := s.users.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return s.Get(ctx, userID)
}

func checkUpload(f Upload) (string, error) {
	if len(f.Data) == 0 {
		return "", domain.Validation("ファイルが空です")
	}
	if len(f.Data) > MaxUploadBytes {
		return "", domain.Validation("ファイルサイズは10MBまでです")
	}
	ext := strings.ToLower(filepath.Ext(f.FileName))
	if !allowedUploadExt[ext] {
		return "", domain.Validation("対応していないファイル形式です")
	}
	return ext, nil
}

// UploadCertificate stores a qualification certificate and keeps its extracted text for review.
func (s *ProfileService) UploadCertificate(ctx context.Context, userID uint, qualification string, f Upload) (*domain.WorkerCertificate, error) {
	qualification = strings.TrimSpace(qualification)
	if qualification == "" {
		return nil, domain.Validation("資格を選択してください")
	}
	ext, err := checkUpload(f)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("certificates/%d/%s%s", userID, uuid.NewString(), ext)
	path, err := s.storage.Put(ctx, key, f.Data)
	if err != nil {
		return nil, fmt.Errorf("store certificate: %w", err)
	}
	text := ""
	if s.extractor != nil {
		text, err = s.extractor.ExtractText(f.FileName, f.Data)
		if err != nil {
			s.logger.Warn("certificate text extraction", zap.String("file", f.FileName), zap.Error(err))
			text = ""
		}
	}
	cert := &domain.WorkerCertificate{
		UserID:        userID,
		Qualification: qualification,
		FileName:      filepath.Base(f.FileName),
		StoragePath:   path,
		ExtractedText: text,
	}
	if err := s.certs.Create(ctx, cert); err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}
	s.logger.Info("certificate uploaded", zap.Uint("user_id", userID), zap.String("qualification", qualification),
		zap.Int("text_len", len(text)))
	return cert, nil
}

type ProfileDocument string

const (
	DocumentBankBook   ProfileDocument = "bank_book"
	DocumentIdentifier ProfileDocument = "id_document"
)

// UploadDocument stores the bank book copy or the identity document and links it to the profile.
func (s *ProfileService) UploadDocument(ctx context.Context, userID uint, kind ProfileDocument, f Upload) (*domain.User, error) {
	if kind != DocumentBankBook && kind != DocumentIdentifier {
		return nil, domain.Validation("書類の種類が不正です")
	}
	ext, err := checkUpload(f)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	path, err := s.storage.Put(ctx, fmt.Sprintf("%s/%d/%s%s", kind, userID, uuid.NewString(), ext), f.Data)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", kind, err)
	}
	if kind == DocumentBankBook {
		u.BankBookImage = path
	} else {
		u.IDDocument = path
	}
	if err := s.users.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return u, nil
}

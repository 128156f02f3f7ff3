package domain

import "time"

// User is a worker account.
type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Email            string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash     string     `gorm:"size:255;not null" json:"-"`
	Name             string     `gorm:"size:128;not null" json:"name"`
	LastNameKana     string     `gorm:"size:64" json:"last_name_kana"`
	FirstNameKana    string     `gorm:"size:64" json:"first_name_kana"`
	BirthDate        *time.Time `json:"birth_date,omitempty"`
	Gender           string     `gorm:"size:16" json:"gender"`
	Nationality      string     `gorm:"size:64" json:"nationality"`
	PostalCode       string     `gorm:"size:16" json:"postal_code"`
	Prefecture       string     `gorm:"size:16" json:"prefecture"`
	City             string     `gorm:"size:64" json:"city"`
	AddressLine      string     `gorm:"size:255" json:"address_line"`
	PhoneNumber      string     `gorm:"size:32" json:"phone_number"`
	EmergencyName    string     `gorm:"size:128" json:"emergency_name"`
	EmergencyPhone   string     `gorm:"size:32" json:"emergency_phone"`
	CurrentWorkStyle string     `gorm:"size:64" json:"current_work_style"`
	DesiredWorkStyle string     `gorm:"size:64" json:"desired_work_style"`
	ExperienceFields []string   `gorm:"serializer:json;type:text" json:"experience_fields"`
	Qualifications   []string   `gorm:"serializer:json;type:text" json:"qualifications"`
	SelfPR           string     `gorm:"type:text" json:"self_pr"`
	BankCode         string     `gorm:"size:4" json:"bank_code"`
	BankName         string     `gorm:"size:128" json:"bank_name"`
	BranchCode       string     `gorm:"size:3" json:"branch_code"`
	BranchName       string     `gorm:"size:128" json:"branch_name"`
	AccountName      string     `gorm:"size:128" json:"account_name"`
	AccountNumber    string     `gorm:"size:16" json:"account_number"`
	BankBookImage    string     `gorm:"size:255" json:"bank_book_image"`
	IDDocument       string     `gorm:"size:255" json:"id_document"`
	IsSuspended      bool       `gorm:"default:false" json:"is_suspended"`
	EmailVerified    bool       `gorm:"default:false" json:"email_verified"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// OtherQualification never requires a certificate.
const OtherQualification = "その他"

// MissingProfileFields lists the labels of required profile fields that are still empty.
// certified holds the qualifications that already have an uploaded certificate.
func MissingProfileFields(u User, certified map[string]bool) []string {
	required := []struct {
		value string
		label string
	}{
		{u.LastNameKana, "フリガナ（セイ）"},
		{u.FirstNameKana, "フリガナ（メイ）"},
		{u.Gender, "性別"},
		{u.Nationality, "国籍"},
		{u.PostalCode, "郵便番号"},
		{u.Prefecture, "都道府県"},
		{u.City, "市区町村"},
		{u.AddressLine, "番地"},
		{u.PhoneNumber, "電話番号"},
		{u.EmergencyName, "緊急連絡先氏名"},
		{u.EmergencyPhone, "緊急連絡先電話番号"},
		{u.CurrentWorkStyle, "現在の働き方"},
		{u.DesiredWorkStyle, "希望の働き方"},
		{u.BankName, "銀行名"},
		{u.BranchName, "支店名"},
		{u.AccountName, "口座名義"},
		{u.AccountNumber, "口座番号"},
		{u.BankBookImage, "通帳コピー"},
		{u.IDDocument, "身分証明書"},
	}
	var missing []string
	for _, f := range required {
		if f.value == "" {
			missing = append(missing, f.label)
		}
	}
	if len(u.ExperienceFields) == 0 {
		missing = append(missing, "経験・スキル")
	}
	if len(u.Qualifications) == 0 {
		missing = append(missing, "保有資格")
	}
	for _, q := range u.Qualifications {
		if q == OtherQualification {
			continue
		}
		if !certified[q] {
			missing = append(missing, "資格証明書（"+q+"）")
		}
	}
	return missing
}

// WorkerCertificate is an uploaded qualification certificate with its extracted text.
type WorkerCertificate struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"index;not null" json:"user_id"`
	Qualification string    `gorm:"size:128;not null" json:"qualification"`
	FileName      string    `gorm:"size:255" json:"file_name"`
	StoragePath   string    `gorm:"size:512" json:"storage_path"`
	ExtractedText string    `gorm:"type:text" json:"extracted_text"`
	CreatedAt     time.Time `json:"created_at"`
}

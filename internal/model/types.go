package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidName     = errors.New("name cannot be empty")
	ErrInvalidPhone    = errors.New("invalid phone number format, expected XXXXXXXXXX")
	ErrInvalidBirthday = errors.New("invalid date format, expected YYYY.MM.DD")
)

// BirthdayLayout is the only accepted textual form of a birthday.
const BirthdayLayout = "2006.01.02"

// Name is the trimmed, non-empty key of a record.
type Name string

func ParseName(s string) (Name, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidName
	}
	return Name(s), nil
}

func (n Name) String() string { return string(n) }

// PhoneValue holds exactly ten decimal digits.
type PhoneValue string

func ParsePhoneValue(s string) (PhoneValue, error) {
	if len(s) != 10 {
		return "", ErrInvalidPhone
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", ErrInvalidPhone
		}
	}
	return PhoneValue(s), nil
}

func (p PhoneValue) String() string { return string(p) }

type PhoneType string

const (
	PhoneHome   PhoneType = "home"
	PhoneMobile PhoneType = "mobile"
	PhoneWork   PhoneType = "work"
)

// PhoneTypes lists the accepted tags in display order.
var PhoneTypes = []PhoneType{PhoneHome, PhoneMobile, PhoneWork}

func ParsePhoneType(s string) (PhoneType, error) {
	for _, t := range PhoneTypes {
		if string(t) == s {
			return t, nil
		}
	}
	names := make([]string, len(PhoneTypes))
	for i, t := range PhoneTypes {
		names[i] = string(t)
	}
	return "", fmt.Errorf("invalid choice: %q (choose from %s)", s, strings.Join(names, ", "))
}

func (t PhoneType) String() string { return string(t) }

type Phone struct {
	Value PhoneValue `cbor:"value"`
	Type  PhoneType  `cbor:"type"`
}

func (p Phone) String() string {
	return fmt.Sprintf("%s (%s)", p.Value, p.Type)
}

// Birthday is a civil date without time of day or location.
type Birthday struct {
	Year  int        `cbor:"year"`
	Month time.Month `cbor:"month"`
	Day   int        `cbor:"day"`
}

func ParseBirthday(s string) (Birthday, error) {
	t, err := time.Parse(BirthdayLayout, s)
	if err != nil {
		return Birthday{}, ErrInvalidBirthday
	}
	return Birthday{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// Time returns the birthday at midnight UTC.
func (b Birthday) Time() time.Time {
	return time.Date(b.Year, b.Month, b.Day, 0, 0, 0, 0, time.UTC)
}

func (b Birthday) String() string {
	return b.Time().Format(BirthdayLayout)
}

// Long renders the date with its weekday, e.g. "1990.05.17 (Thursday)".
func (b Birthday) Long() string {
	t := b.Time()
	return fmt.Sprintf("%s (%s)", t.Format(BirthdayLayout), t.Weekday())
}

// Record is the value stored under its Name.
type Record struct {
	Name     Name      `cbor:"name"`
	Phones   []Phone   `cbor:"phones"`
	Birthday *Birthday `cbor:"birthday,omitempty"`
}

func NewRecord(name Name) *Record {
	return &Record{Name: name}
}

func (r *Record) String() string {
	phones := make([]string, len(r.Phones))
	for i, p := range r.Phones {
		phones[i] = p.String()
	}
	return fmt.Sprintf("Contact name: %s, phones: %s", r.Name, strings.Join(phones, "; "))
}

func (r *Record) AddPhone(p Phone) {
	r.Phones = append(r.Phones, p)
}

// HasPhone reports whether index addresses an existing phone.
func (r *Record) HasPhone(index int) bool {
	return index >= 0 && index < len(r.Phones)
}

func (r *Record) EditPhone(index int, p Phone) {
	r.Phones[index] = p
}

func (r *Record) DeletePhone(index int) {
	r.Phones = append(r.Phones[:index], r.Phones[index+1:]...)
}

func (r *Record) SetBirthday(b Birthday) {
	r.Birthday = &b
}

func (r *Record) ClearBirthday() {
	r.Birthday = nil
}

// Empty reports whether the record holds neither phones nor a birthday.
func (r *Record) Empty() bool {
	return len(r.Phones) == 0 && r.Birthday == nil
}

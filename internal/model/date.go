package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date はタイムゾーンを持たない暦日を表す。
// ゼロ値は未設定を意味する。
type Date struct {
	t time.Time
}

// NewDate は年月日からDateを生成する。
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate は "YYYY-MM-DD" 形式の文字列をDateに変換する。
func ParseDate(s string) (Date, error) {
	if len(s) != len(dateLayout) {
		return Date{}, fmt.Errorf("invalid date %q: must be YYYY-MM-DD", s)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// dateFromTime は時刻の暦日部分だけを取り出す。
func dateFromTime(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// String は "YYYY-MM-DD" 形式で返す。
func (d Date) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

// IsZero は未設定かどうかを返す。
func (d Date) IsZero() bool { return d.t.IsZero() }

// Before はdがoより前の日かどうかを返す。
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// After はdがoより後の日かどうかを返す。
func (d Date) After(o Date) bool { return d.t.After(o.t) }

// Equal は同じ日かどうかを返す。
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// Value はDateをDBの値に変換する。SQL側では ::date でキャストする。
func (d Date) Value() (driver.Value, error) {
	if d.t.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan はDBのDATE値を読み取る。
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = dateFromTime(v)
		return nil
	case string:
		return d.parseInto(v)
	case []byte:
		return d.parseInto(string(v))
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) parseInto(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON は "YYYY-MM-DD" 文字列としてエンコードする。
func (d Date) MarshalJSON() ([]byte, error) {
	if d.t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON は "YYYY-MM-DD" 文字列をデコードする。
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Overlaps は閉区間 [aStart, aEnd] と [bStart, bEnd] が1日でも重なるかを返す。
// 重ならない条件は aEnd < bStart または aStart > bEnd。
func Overlaps(aStart, aEnd, bStart, bEnd Date) bool {
	disjoint := aEnd.Before(bStart) || aStart.After(bEnd)
	return !disjoint
}

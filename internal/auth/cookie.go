package auth

import (
	"net/http"
	"time"
)

// セッションCookie名。HTTPS配信時は__Secure-接頭辞付きの名前を使う。
const (
	SessionCookieName       = "retainerkit.session-token"
	SecureSessionCookieName = "__Secure-" + SessionCookieName
)

// CookieGetter はリクエストからCookieを取得するインターフェース。*http.Requestが満たす。
type CookieGetter interface {
	Cookie(name string) (*http.Cookie, error)
}

// ExtractToken はリクエストのCookieからセッショントークンを取り出す。
// __Secure-付きの名前を優先し、なければ通常の名前を見る。空の値は無視する。
func ExtractToken(r CookieGetter) (string, bool) {
	for _, name := range []string{SecureSessionCookieName, SessionCookieName} {
		c, err := r.Cookie(name)
		if err != nil || c.Value == "" {
			continue
		}
		return c.Value, true
	}
	return "", false
}

// ClearSessionCookies は両方の名前のセッションCookieを失効させる。
// ログアウト時やセッションが無効だった場合に呼ぶ。
// ブラウザはDomainが一致するCookieしか削除しないため、発行時と同じoptsを渡すこと。
func ClearSessionCookies(w http.ResponseWriter, opts CookieOptions) {
	for _, name := range []string{SessionCookieName, SecureSessionCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   opts.Domain,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			// __Secure-接頭辞のCookieはSecure属性がないとブラウザが受け付けない
			Secure: name == SecureSessionCookieName,
		})
	}
}

// CookieOptions はセッションCookie発行時の属性。
type CookieOptions struct {
	Secure bool
	Domain string
}

// SetSessionCookie はセッショントークンをCookieに書き込む。
// Secureの場合は__Secure-付きの名前を使う。
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time, opts CookieOptions) {
	name := SessionCookieName
	if opts.Secure {
		name = SecureSessionCookieName
	}

	maxAge := int(time.Until(expires).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Domain:   opts.Domain,
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

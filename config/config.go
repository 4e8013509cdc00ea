package config

import (
	"errors"
	"flag"
	"net"
	"regexp"
	"strconv"
	"time"
)

type Config struct {
	Addr           string
	SiteTitle      string
	ContentDir     string
	DBPath         string
	CaptchaSiteKey string
	CaptchaSecret  string
	CaptchaURL     string
	ContactEmail   string
	ResumeURL      string
	SessionTTL     time.Duration
	Debug          bool
}

func ParseFlags() (cfg Config, err error) {
	var host string
	flag.StringVar(&host, "host", "0.0.0.0", "listen host name (default 0.0.0.0)")
	var port uint
	flag.UintVar(&port, "port", 80, "listen port number (default 80)")
	flag.StringVar(&cfg.SiteTitle, "site-title", "dkessler.dev", "site title shown in the header (default dkessler.dev)")
	flag.StringVar(&cfg.ContentDir, "content-dir", "content", "path to the Markdown content directory (default content)")
	flag.StringVar(&cfg.DBPath, "db-path", "homepage.sqlite", "path to SQLite3 content index file (default homepage.sqlite)")
	flag.StringVar(&cfg.CaptchaSiteKey, "captcha-site-key", "", "public site key of the verification challenge provider")
	flag.StringVar(&cfg.CaptchaSecret, "captcha-secret", "", "secret key for the provider's siteverify endpoint")
	flag.StringVar(&cfg.CaptchaURL, "captcha-url", "https://hcaptcha.com/siteverify", "verification challenge provider siteverify URL")
	flag.StringVar(&cfg.ContactEmail, "contact-email", "", "email address disclosed by the contact widget")
	flag.StringVar(&cfg.ResumeURL, "resume-url", "", "resume document URL disclosed by the contact widget")
	var ttl uint
	flag.UintVar(&ttl, "session-ttl", 1800, "contact widget session TTL in seconds (default 1800)")
	flag.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	flag.Parse()

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.SessionTTL = time.Duration(ttl) * time.Second

	switch {
	case cfg.CaptchaSiteKey == "":
		err = errors.New("missing parameter -captcha-site-key")
	case cfg.CaptchaSecret == "":
		err = errors.New("missing parameter -captcha-secret")
	case cfg.ContactEmail == "":
		err = errors.New("missing parameter -contact-email")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

package config

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

var ErrConfiguration = errors.New("configuration error")

// Account is one eBay buyer account. An empty Suffix is the primary account;
// the others read their variables with a "_<suffix>" ending.
type Account struct {
	Suffix       string
	AppID        string
	ClientSecret string
	DevID        string
	UserToken    string
	RefreshToken string
}

func (a Account) Label() string {
	if a.Suffix == "" {
		return "primary"
	}
	return "account_" + a.Suffix
}

func (a Account) Validate() error {
	if a.AppID == "" {
		return errors.Wrapf(ErrConfiguration, "%s not set", envKey("EBAY_APP_ID", a.Suffix))
	}
	if a.ClientSecret == "" {
		return errors.Wrapf(ErrConfiguration, "%s not set", envKey("EBAY_CLIENT_SECRET", a.Suffix))
	}
	return nil
}

// DiscoverAccounts returns the primary account when EBAY_APP_ID is set, then
// checks EBAY_APP_ID_2, EBAY_APP_ID_3, ... and stops at the first missing one.
func DiscoverAccounts(env Env) []Account {
	var accounts []Account
	if env.Get("EBAY_APP_ID") != "" {
		accounts = append(accounts, accountFromEnv(env, ""))
	}
	for n := 2; ; n++ {
		suffix := strconv.Itoa(n)
		if env.Get(envKey("EBAY_APP_ID", suffix)) == "" {
			break
		}
		accounts = append(accounts, accountFromEnv(env, suffix))
	}
	return accounts
}

func accountFromEnv(env Env, suffix string) Account {
	return Account{
		Suffix:       suffix,
		AppID:        env.Get(envKey("EBAY_APP_ID", suffix)),
		ClientSecret: env.Get(envKey("EBAY_CLIENT_SECRET", suffix)),
		DevID:        env.Get(envKey("EBAY_DEV_ID", suffix)),
		UserToken:    env.Get(envKey("EBAY_USER_TOKEN", suffix)),
		RefreshToken: env.Get(envKey("EBAY_REFRESH_TOKEN", suffix)),
	}
}

func envKey(base, suffix string) string {
	if suffix == "" {
		return base
	}
	return fmt.Sprintf("%s_%s", base, suffix)
}

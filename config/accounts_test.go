package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscoverAccounts(t *testing.T) {
	env := Env{
		"EBAY_APP_ID":          "app1",
		"EBAY_CLIENT_SECRET":   "s1",
		"EBAY_USER_TOKEN":      "u1",
		"EBAY_APP_ID_2":        "app2",
		"EBAY_CLIENT_SECRET_2": "s2",
		"EBAY_REFRESH_TOKEN_2": "r2",
		"EBAY_APP_ID_3":        "app3",
		// gap at 4 hides 5
		"EBAY_APP_ID_5": "app5",
	}

	accounts := DiscoverAccounts(env)
	require.Len(t, accounts, 3)
	require.Equal(t, Account{AppID: "app1", ClientSecret: "s1", UserToken: "u1"}, accounts[0])
	require.Equal(t, Account{Suffix: "2", AppID: "app2", ClientSecret: "s2", RefreshToken: "r2"}, accounts[1])
	require.Equal(t, "3", accounts[2].Suffix)

	require.Equal(t, "primary", accounts[0].Label())
	require.Equal(t, "account_2", accounts[1].Label())
}

func TestDiscoverAccounts_PrimaryOnlyWhenConfigured(t *testing.T) {
	require.Empty(t, DiscoverAccounts(Env{}))

	accounts := DiscoverAccounts(Env{"EBAY_APP_ID_2": "a2", "EBAY_CLIENT_SECRET_2": "s2"})
	require.Len(t, accounts, 1)
	require.Equal(t, "2", accounts[0].Suffix)
	require.NoError(t, accounts[0].Validate())

	accounts = DiscoverAccounts(Env{"EBAY_APP_ID": "a1"})
	require.Len(t, accounts, 1)
	require.Equal(t, "", accounts[0].Suffix)
	require.ErrorIs(t, accounts[0].Validate(), ErrConfiguration)
}

func TestAccount_Validate(t *testing.T) {
	err := Account{Suffix: "3", AppID: "a"}.Validate()
	require.ErrorIs(t, err, ErrConfiguration)
	require.Contains(t, err.Error(), "EBAY_CLIENT_SECRET_3 not set")

	err = Account{ClientSecret: "s"}.Validate()
	require.ErrorIs(t, err, ErrConfiguration)
	require.Contains(t, err.Error(), "EBAY_APP_ID not set")

	require.NoError(t, Account{AppID: "a", ClientSecret: "s"}.Validate())
}

package dexcom

import (
	"context"
	"testing"
	"time"

	"ichor/ichor/defs"
	"ichor/ichor/pkg/units"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gopkg.in/h2non/gock.v1"
)

var testConfig = defs.DexcomConfig{Account: "testAccount", Password: "testPassword"}

type DexcomTestSuite struct {
	suite.Suite
}

func TestDexcomTestSuite(t *testing.T) {
	suite.Run(t, new(DexcomTestSuite))
}

func (suite *DexcomTestSuite) AfterTest(_, _ string) {
	gock.Off()
}

func (suite *DexcomTestSuite) mockLogin(session string) {
	gock.New(DefaultBaseURL).
		Post("/" + loginEndpoint).
		MatchType("json").
		JSON(map[string]string{
			"accountName":   "testAccount",
			"password":      "testPassword",
			"applicationId": appID,
		}).
		Reply(200).
		BodyString(`"` + session + `"`)
}

func (suite *DexcomTestSuite) TestCreateSession() {
	suite.mockLogin("test")

	client := New(testConfig, zap.NewNop())
	sid, err := client.CreateSession(context.Background())
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "test", sid)
}

func (suite *DexcomTestSuite) TestCreateSessionRejected() {
	gock.New(DefaultBaseURL).
		Post("/" + loginEndpoint).
		Reply(500).
		BodyString(`{"Code":"AccountPasswordInvalid"}`)

	client := New(testConfig, zap.NewNop())
	_, err := client.CreateSession(context.Background())
	assert.Error(suite.T(), err)
}

func (suite *DexcomTestSuite) TestGetReadings() {
	expectedTrs := []defs.TransformedReading{
		{
			Time:  time.UnixMilli(1651987807000),
			Mmol:  units.MgdlToMmol(219),
			Trend: "Flat",
		},
		{
			Time:  time.UnixMilli(1651988108000),
			Mmol:  units.MgdlToMmol(220),
			Trend: "FortyFiveUp",
		},
	}

	suite.mockLogin("test")

	gock.New(DefaultBaseURL).
		Get("/" + readingsEndpoint).
		MatchParams(map[string]string{
			"sessionId": "^test$",
			"minutes":   "^1440$",
			"maxCount":  "^288$",
		}).
		Reply(200).
		BodyString(
			`[{"WT":"Date(1651988108000)","ST":"Date(1651988108000)","DT":"Date(1651988108000-0400)","Value":220,"Trend":"FortyFiveUp"},
				{"WT":"Date(1651987807000)","ST":"Date(1651987807000)","DT":"Date(1651987807000-0400)","Value":219,"Trend":"Flat"}]`,
		)

	client := New(testConfig, zap.NewNop())
	trs, err := client.Readings(context.Background(), 1440, 288)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), expectedTrs, trs)
	assert.True(suite.T(), gock.IsDone())
}

func (suite *DexcomTestSuite) TestReadingsWindowTooLarge() {
	client := New(testConfig, zap.NewNop())

	_, err := client.Readings(context.Background(), MinuteLimit+1, 10)
	assert.Error(suite.T(), err)
	_, err = client.Readings(context.Background(), 60, CountLimit+1)
	assert.Error(suite.T(), err)
}

func (suite *DexcomTestSuite) TestCustomBaseURL() {
	gock.New("http://share.local/api").
		Post("/" + loginEndpoint).
		Reply(200).
		BodyString(`"local"`)

	client := New(defs.DexcomConfig{BaseURL: "http://share.local/api/"}, zap.NewNop())
	sid, err := client.CreateSession(context.Background())
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "local", sid)
}

func TestTransform(t *testing.T) {
	tr, err := Transform(Reading{WT: "Date(1651987807000)", Value: 180, Trend: "Flat"})
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1651987807000), tr.Time)
	assert.InDelta(t, 9.99, tr.Mmol, 0.01)

	_, err = Transform(Reading{WT: "garbage", Value: 100})
	assert.Error(t, err)

	_, err = Transform(Reading{WT: "Date(1651987807000)", Value: 0})
	assert.ErrorIs(t, err, units.ErrInvalidGlucose)
}

func TestParseWireTime(t *testing.T) {
	for _, wt := range []string{"Date(1651987807000)", "Date(1651987807000-0400)", "Date(1651987807000+0100)"} {
		ms, err := parseWireTime(wt)
		require.NoError(t, err, wt)
		assert.Equal(t, int64(1651987807000), ms, wt)
	}
}

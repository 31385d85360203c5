package weather

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/curbz/skytrace/internal/errs"
	"github.com/curbz/skytrace/internal/fixed"
)

// metarTimeLayout is the upstream API's timestamp format.
const metarTimeLayout = "2006-01-02 15:04:05"

// WindDirection is either a numeric heading in degrees or the literal
// string "VRB" when the wind is variable; the upstream JSON emits both.
type WindDirection struct {
	Degrees  int
	Variable bool
}

// UnmarshalJSON accepts a JSON number or a string.
func (w *WindDirection) UnmarshalJSON(data []byte) error {
	var deg int
	if err := json.Unmarshal(data, &deg); err == nil {
		w.Degrees = deg
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	w.Variable = true
	w.Degrees = -1
	return nil
}

// Metar is one observation from the upstream metar.php JSON array.
type Metar struct {
	MetarID     int64          `json:"metar_id"`
	ICAOID      string         `json:"icaoId"`
	ReceiptTime string         `json:"receiptTime"`
	ReportTime  string         `json:"reportTime"`
	Temp        *float64       `json:"temp"`
	Dewp        *float64       `json:"dewp"`
	Wdir        *WindDirection `json:"wdir"`
	Wspd        *int           `json:"wspd"`
	Wgst        *int           `json:"wgst"`
	RawOb       string         `json:"rawOb"`
}

// ToWeather converts the raw observation into the cached record.
func (m Metar) ToWeather() fixed.Weather {
	wx := fixed.Weather{RawOb: m.RawOb}
	if m.Temp != nil {
		wx.TemperatureC = *m.Temp
	}
	if m.Dewp != nil {
		wx.DewPointC = *m.Dewp
	}
	if m.Wspd != nil {
		wx.WindSpeedKt = *m.Wspd
	}
	if m.Wgst != nil {
		wx.WindGustKt = *m.Wgst
	}
	if m.Wdir != nil {
		wx.WindDirection = m.Wdir.Degrees
		wx.Variable = m.Wdir.Variable
	}
	if ts, err := time.Parse(metarTimeLayout, m.ReceiptTime); err == nil {
		wx.ObservedAt = ts.UnixMilli()
	}
	return wx
}

// HTTPFetcher calls the aviationweather-style metar.php endpoint.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPFetcher builds a fetcher against baseURL with the given
// request timeout.
func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

// FetchMetars requests observations for ids in one call.
func (f *HTTPFetcher) FetchMetars(ids []string) ([]Metar, error) {
	url := fmt.Sprintf("%s/metar.php?ids=%s&format=json", f.BaseURL, strings.Join(ids, ","))
	resp, err := f.Client.Get(url)
	if err != nil {
		return nil, errs.Wrap(errs.ErrFetch, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errs.Wrap(errs.ErrFetch, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrFetch, err.Error())
	}
	var metars []Metar
	if err := json.Unmarshal(body, &metars); err != nil {
		return nil, errs.Wrap(errs.ErrParse, err.Error())
	}
	return metars, nil
}

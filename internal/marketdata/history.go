package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"T0Pilot/internal/domain/models"
	xhttp "T0Pilot/pkg/http"
)

// HistoryClient fetches candle history from the vendor REST API. It is used
// once per symbol at subscription time to backfill daily context; the
// realtime path never touches it.
type HistoryClient struct {
	http    *xhttp.Client
	baseURL string
	token   string
}

func NewHistoryClient(baseURL, token string) *HistoryClient {
	return &HistoryClient{
		http:    xhttp.NewClient(xhttp.WithTimeout(15 * time.Second)),
		baseURL: baseURL,
		token:   token,
	}
}

// candleResponse is the vendor's columnar candle payload. Status "no_data"
// is a valid empty result, not an error.
type candleResponse struct {
	Status  string    `json:"s"`
	Times   []int64   `json:"t"`
	Opens   []float64 `json:"o"`
	Highs   []float64 `json:"h"`
	Lows    []float64 `json:"l"`
	Closes  []float64 `json:"c"`
	Volumes []float64 `json:"v"`
}

// DailyBars returns up to n daily candles ending today, oldest first.
func (h *HistoryClient) DailyBars(ctx context.Context, symbol string, n int) ([]models.Bar, error) {
	if n <= 0 {
		return nil, nil
	}
	to := time.Now()
	// Calendar span wide enough to cover n trading days.
	from := to.AddDate(0, 0, -(n*2 + 7))

	var resp candleResponse
	err := h.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    h.baseURL + "/stock/candle",
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"resolution": {"D"},
			"from":       {strconv.FormatInt(from.Unix(), 10)},
			"to":         {strconv.FormatInt(to.Unix(), 10)},
			"token":      {h.token},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch daily candles for %s: %w", symbol, err)
	}
	if resp.Status == "no_data" {
		return nil, nil
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("candle response status %q for %s", resp.Status, symbol)
	}

	count := len(resp.Times)
	if len(resp.Closes) != count || len(resp.Opens) != count ||
		len(resp.Highs) != count || len(resp.Lows) != count || len(resp.Volumes) != count {
		return nil, fmt.Errorf("ragged candle response for %s", symbol)
	}

	bars := make([]models.Bar, 0, count)
	for i := 0; i < count; i++ {
		bars = append(bars, models.Bar{
			Timestamp: time.Unix(resp.Times[i], 0),
			Open:      resp.Opens[i],
			High:      resp.Highs[i],
			Low:       resp.Lows[i],
			Close:     resp.Closes[i],
			Volume:    resp.Volumes[i],
		})
	}
	if len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	return bars, nil
}

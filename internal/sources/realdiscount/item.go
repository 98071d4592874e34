package realdiscount

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// item is one course offer as published by the API. Field types are loose
// upstream, so items are decoded weakly.
type item struct {
	Name      string  `mapstructure:"name"`
	URL       string  `mapstructure:"url"`
	SalePrice float64 `mapstructure:"sale_price"`
	Store     string  `mapstructure:"store"`
	Type      string  `mapstructure:"type"`
	IsAd      bool    `mapstructure:"isAd"`
}

type page struct {
	Items []map[string]any `json:"items"`
}

// rawItem keeps the decode outcome so undecodable items are still counted.
type rawItem struct {
	item item
	err  error
}

func decodePage(body []byte) ([]rawItem, error) {
	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}

	out := make([]rawItem, 0, len(p.Items))
	for _, m := range p.Items {
		var it item
		err := decodeItem(m, &it)
		out = append(out, rawItem{item: it, err: err})
	}

	return out, nil
}

func decodeItem(m map[string]any, it *item) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(priceHook),
		WeaklyTypedInput: true,
		Result:           it,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(m); err != nil {
		return fmt.Errorf("decode item: %w", err)
	}
	return nil
}

// priceHook accepts prices written as "$0.00", "0" or "Free".
func priceHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Float64 {
		return data, nil
	}

	s := strings.TrimSpace(data.(string))
	s = strings.TrimPrefix(s, "$")
	if s == "" || strings.EqualFold(s, "free") {
		return 0.0, nil
	}

	price, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", data, err)
	}

	return price, nil
}

var adTypes = map[string]struct{}{"ad": {}, "ads": {}, "sponsored": {}}

func (it item) isAdvertisement() bool {
	_, ok := adTypes[strings.ToLower(strings.TrimSpace(it.Type))]
	return ok || it.IsAd
}

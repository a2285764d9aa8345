package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/combo-store/internal/domain/catalog"
)

const maxBodyBytes = 1 << 20

// decodeBody decodes a JSON object body, calling fn for every field.
func decodeBody(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	if r.Body == nil || r.Body == http.NoBody {
		return badRequest("request body is required")
	}
	d := jx.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), 4096)
	if err := d.Obj(fn); err != nil {
		var (
			br       *badRequestError
			tooLarge *http.MaxBytesError
		)
		if errors.As(err, &br) || errors.As(err, &tooLarge) {
			return err
		}
		return badRequest("malformed JSON body: %v", err)
	}
	return nil
}

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder, field string) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = n.String()
	default:
		return decimal.Decimal{}, badRequest("%s must be a number", field)
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, badRequest("%s must be a number", field)
	}
	return v, nil
}

func decodeNullDecimal(d *jx.Decoder, field string) (decimal.NullDecimal, error) {
	if d.Next() == jx.Null {
		return decimal.NullDecimal{}, d.Null()
	}
	v, err := decodeDecimal(d, field)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(v), nil
}

func decodeInt(d *jx.Decoder, field string) (int, error) {
	if d.Next() != jx.Number {
		return 0, badRequest("%s must be an integer", field)
	}
	v, err := d.Int()
	if err != nil {
		return 0, badRequest("%s must be an integer", field)
	}
	return v, nil
}

func parseSize(s string) (catalog.Size, error) {
	size, err := catalog.ParseSize(s)
	if err != nil {
		return "", badRequest("%v", err)
	}
	return size, nil
}

func decodeSize(d *jx.Decoder) (catalog.Size, error) {
	s, err := d.Str()
	if err != nil {
		return "", err
	}
	return parseSize(s)
}

// decodeStock accepts either {"S": 3, "M": 1} or [{"size": "S", "quantity": 3}].
func decodeStock(d *jx.Decoder) ([]catalog.SizeStock, error) {
	var stock []catalog.SizeStock
	switch d.Next() {
	case jx.Object:
		err := d.Obj(func(d *jx.Decoder, key string) error {
			size, err := parseSize(key)
			if err != nil {
				return err
			}
			n, err := decodeInt(d, "stock."+key)
			if err != nil {
				return err
			}
			stock = append(stock, catalog.SizeStock{Size: size, Quantity: n})
			return nil
		})
		return stock, err
	case jx.Array:
		err := d.Arr(func(d *jx.Decoder) error {
			var row catalog.SizeStock
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "size":
					row.Size, err = decodeSize(d)
				case "quantity":
					row.Quantity, err = decodeInt(d, "quantity")
				default:
					err = d.Skip()
				}
				return err
			}); err != nil {
				return err
			}
			if row.Size == "" {
				return badRequest("stock rows need a size")
			}
			stock = append(stock, row)
			return nil
		})
		return stock, err
	}
	return nil, badRequest("stock must be an object or an array")
}

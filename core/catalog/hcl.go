package catalog

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/shopspring/decimal"

	"matali-pricing/core/types"
	apperrors "matali-pricing/internal/errors"
)

// serviceMaster is the HCL schema of a service master file:
//
//	default_service = "preparation_team"
//
//	service "preparation_team" {
//	  name   = "Order preparation"
//	  group  = "fulfillment"
//	  unit   = "order"
//	  labels = ["ايراد التجهيز"]
//
//	  capacity {
//	    type         = "daily"
//	    daily        = 810
//	    working_days = 26
//	    monthly_cost = 45000
//	  }
//	}
type serviceMaster struct {
	DefaultService string         `hcl:"default_service"`
	Services       []serviceBlock `hcl:"service,block"`
}

type serviceBlock struct {
	Key      string         `hcl:"key,label"`
	Name     string         `hcl:"name,optional"`
	Group    string         `hcl:"group,optional"`
	Unit     string         `hcl:"unit,optional"`
	Labels   []string       `hcl:"labels,optional"`
	Capacity *capacityBlock `hcl:"capacity,block"`
}

type capacityBlock struct {
	Type        string  `hcl:"type"`
	Daily       float64 `hcl:"daily,optional"`
	Static      float64 `hcl:"static,optional"`
	WorkingDays float64 `hcl:"working_days,optional"`
	MonthlyCost float64 `hcl:"monthly_cost,optional"`
}

// LoadFile reads a service master from an .hcl file
func LoadFile(path string) (*Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Config("read service master", err)
	}
	return Parse(filepath.Base(path), src)
}

// Parse decodes a service master. filename must end in .hcl (or .json for HCL's JSON syntax).
func Parse(filename string, src []byte) (*Catalog, error) {
	var master serviceMaster
	if err := hclsimple.Decode(filename, src, nil, &master); err != nil {
		return nil, apperrors.Parsing("decode service master "+filename, err)
	}

	c := New(master.DefaultService)
	for _, block := range master.Services {
		svc := types.Service{
			Key:    block.Key,
			Name:   block.Name,
			Group:  block.Group,
			Unit:   block.Unit,
			Labels: block.Labels,
		}
		if cb := block.Capacity; cb != nil {
			ct := types.CapacityType(cb.Type)
			if ct != types.CapacityDaily && ct != types.CapacityStatic {
				return nil, apperrors.Newf(apperrors.TypeValidation,
					"service %q: capacity type must be daily or static, got %q", block.Key, cb.Type)
			}
			svc.CapacityType = ct
			svc.DailyCapacity = decimal.NewFromFloat(cb.Daily)
			svc.StaticCapacity = decimal.NewFromFloat(cb.Static)
			svc.WorkingDays = decimal.NewFromFloat(cb.WorkingDays)
			svc.MonthlyCost = decimal.NewFromFloat(cb.MonthlyCost)
		}
		if err := c.Register(svc); err != nil {
			return nil, err
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

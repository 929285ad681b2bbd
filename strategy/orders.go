package strategy

import (
	"fmt"

	"github.com/akshayinamdar/LowVolatilityScalper/broker"
	"github.com/akshayinamdar/LowVolatilityScalper/config"
	"github.com/akshayinamdar/LowVolatilityScalper/market"
)

// priceEps absorbs float rounding when comparing price levels.
const priceEps = 1e-9

// Sizer turns a directional decision into a fully specified trade request:
// protective levels on the correct sides of entry at broker-legal distances,
// and a volume from either fixed lots or account-risk sizing.
type Sizer struct {
	meta       market.InstrumentMeta
	cfg        config.OrdersConfig
	strategyID int64
}

func NewSizer(meta market.InstrumentMeta, cfg config.OrdersConfig, strategyID int64) Sizer {
	return Sizer{meta: meta, cfg: cfg, strategyID: strategyID}
}

// Build computes entry, stop, target and volume for one market order. An
// error means the order must not be sent; nothing is mutated on rejection.
func (s Sizer) Build(dir broker.Direction, tick market.Tick, acct broker.Account) (broker.TradeRequest, error) {
	entry := tick.Ask
	if dir == broker.Short {
		entry = tick.Bid
	}

	pip := s.meta.PipSize()
	minDist := s.meta.MinStopPoints * s.meta.Point
	if pip > minDist {
		minDist = pip
	}

	slDist := s.cfg.StopLossPips * pip
	if floor := minDist * s.cfg.MinStopMultiple; slDist < floor {
		slDist = floor
	}
	tpDist := s.cfg.TakeProfitPips * pip
	if tpDist < minDist {
		tpDist = minDist
	}

	var stop, target float64
	if dir == broker.Long {
		stop = s.meta.RoundPrice(entry - slDist)
		target = s.meta.RoundPrice(entry + tpDist)
	} else {
		stop = s.meta.RoundPrice(entry + slDist)
		target = s.meta.RoundPrice(entry - tpDist)
	}

	if err := validateLevels(dir, entry, stop, target, minDist); err != nil {
		return broker.TradeRequest{}, err
	}

	volume, err := s.volume(slDist/pip, acct)
	if err != nil {
		return broker.TradeRequest{}, err
	}

	return broker.TradeRequest{
		Instrument: s.meta.Name,
		Direction:  dir,
		Volume:     volume,
		StopLoss:   stop,
		TakeProfit: target,
		StrategyID: s.strategyID,
		Comment:    "low-vol-scalper",
	}, nil
}

func validateLevels(dir broker.Direction, entry, stop, target, minDist float64) error {
	lossSide := entry - stop
	winSide := target - entry
	if dir == broker.Short {
		lossSide = stop - entry
		winSide = entry - target
	}

	if lossSide <= 0 {
		return fmt.Errorf("stop %.5f not on losing side of entry %.5f (%s)", stop, entry, dir)
	}
	if winSide <= 0 {
		return fmt.Errorf("target %.5f not on winning side of entry %.5f (%s)", target, entry, dir)
	}
	if lossSide < minDist-priceEps {
		return fmt.Errorf("stop distance %.5f below broker minimum %.5f", lossSide, minDist)
	}
	if winSide < minDist-priceEps {
		return fmt.Errorf("target distance %.5f below broker minimum %.5f", winSide, minDist)
	}
	return nil
}

func (s Sizer) volume(stopPips float64, acct broker.Account) (float64, error) {
	if s.cfg.Sizing == "fixed" {
		return s.meta.QuantizeVolume(s.cfg.FixedLots), nil
	}

	if acct.Balance <= 0 {
		return 0, fmt.Errorf("risk sizing needs a positive balance, got %.2f", acct.Balance)
	}
	if stopPips <= 0 || s.meta.PipValue <= 0 {
		return 0, fmt.Errorf("risk sizing needs positive stop pips and pip value")
	}

	riskAmount := acct.Balance * s.cfg.RiskPercent / 100
	lots := riskAmount / (stopPips * s.meta.PipValue)
	return s.meta.QuantizeVolume(lots), nil
}

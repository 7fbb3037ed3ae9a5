// still-recorder - capture bursts of still images and store them as image stacks
//  Copyright (C) 2018, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package throttle

import (
	"errors"
	"time"
)

type ThrottlerConfig struct {
	ApplyThrottling bool          `yaml:"apply-throttling"`
	BucketShots     int           `yaml:"bucket-shots"`
	RefillInterval  time.Duration `yaml:"refill-interval"`
}

func DefaultThrottlerConfig() ThrottlerConfig {
	return ThrottlerConfig{
		ApplyThrottling: true,
		BucketShots:     64,
		RefillInterval:  30 * time.Second,
	}
}

func (c ThrottlerConfig) Validate() error {
	if !c.ApplyThrottling {
		return nil
	}
	if c.BucketShots < 1 {
		return errors.New("bucket-shots must be at least 1")
	}
	if c.RefillInterval <= 0 {
		return errors.New("refill-interval must be positive")
	}
	return nil
}

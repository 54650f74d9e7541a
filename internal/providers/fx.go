package providers

import (
	"github.com/kiranalabs/kirana/internal/providers/email"
	"github.com/kiranalabs/kirana/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)

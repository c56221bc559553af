package autoload

// Import all middleware subpackages for side-effect registration.
import (
	_ "lexdraft/middlewares/localcache"
	_ "lexdraft/middlewares/tokenbudget"
)

package repo

import perrs "storeuptime/internal/platform/errors"

var errNotFound = perrs.NotFoundf("report run not found")
